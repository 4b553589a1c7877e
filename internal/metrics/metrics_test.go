package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOperationName(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"secretsmanager.CreateSecret", "CreateSecret"},
		{"GetSecretValue", "GetSecretValue"},
		{"", "Unknown"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		if tt.target != "" {
			r.Header.Set("X-Amz-Target", tt.target)
		}
		if got := operationName(r); got != tt.want {
			t.Errorf("operationName(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
}

func TestMetricsRegistered(t *testing.T) {
	Register()
	Register() // idempotent

	RequestsTotal.WithLabelValues("CreateSecret", "success").Inc()
	RequestDuration.WithLabelValues("CreateSecret").Observe(0.001)
	SecretsTotal.Set(3)
	ReaperDeletionsTotal.Inc()
}

func TestInstrument(t *testing.T) {
	Register()

	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		time.Sleep(time.Millisecond)
		w.WriteHeader(http.StatusNotFound)
	})

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("X-Amz-Target", "secretsmanager.GetSecretValue")
	w := httptest.NewRecorder()

	Instrument(next).ServeHTTP(w, r)

	if !called {
		t.Fatalf("Instrument() did not call the wrapped handler")
	}
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
