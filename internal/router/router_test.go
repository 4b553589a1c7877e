package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bleepstore/bleepstore/internal/secretengine"
	"github.com/bleepstore/bleepstore/internal/store"
)

func newTestEngine(t *testing.T) *secretengine.Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "secrets.db")
	s, err := store.NewSQLiteStore(dbPath, "test-passphrase")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return secretengine.New(s)
}

func TestOperationForTarget(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"secretsmanager.CreateSecret", "CreateSecret"},
		{"CreateSecret", "CreateSecret"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := operationForTarget(tt.target); got != tt.want {
			t.Errorf("operationForTarget(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
}

func TestDispatchUnknownTarget(t *testing.T) {
	r := New(newTestEngine(t))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	req.Header.Set("X-Amz-Target", "secretsmanager.NotAnOperation")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code == http.StatusOK {
		t.Fatalf("status = %d, want a non-2xx error status", w.Code)
	}
}

func TestDispatchCreateAndGetSecret(t *testing.T) {
	r := New(newTestEngine(t))

	create := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Name":"db/password","SecretString":"s3cret"}`))
	create.Header.Set("X-Amz-Target", "secretsmanager.CreateSecret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, create)
	if w.Code != http.StatusOK {
		t.Fatalf("CreateSecret status = %d, body = %s", w.Code, w.Body.String())
	}

	get := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"SecretId":"db/password"}`))
	get.Header.Set("X-Amz-Target", "secretsmanager.GetSecretValue")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, get)
	if w.Code != http.StatusOK {
		t.Fatalf("GetSecretValue status = %d, body = %s", w.Code, w.Body.String())
	}

	var out secretengine.GetSecretValueOutput
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.SecretString == nil || *out.SecretString != "s3cret" {
		t.Fatalf("SecretString = %v, want s3cret", out.SecretString)
	}
}

func TestHealthEndpoint(t *testing.T) {
	r := New(newTestEngine(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, body = %s", w.Code, w.Body.String())
	}
}
