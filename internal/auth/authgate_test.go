package auth

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apierrors "github.com/bleepstore/bleepstore/internal/errors"
)

const (
	testAccessKeyID     = "AKIDEXAMPLE"
	testAccessKeySecret = "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY"
	testRegion          = "us-east-1"
	testService         = "secretsmanager"
)

func signedRequest(t *testing.T, gate *AuthGate, method, path string, body []byte, at time.Time) *http.Request {
	t.Helper()

	r := httptest.NewRequest(method, path, bytes.NewReader(body))
	amzDate := at.UTC().Format(amzDateFormat)
	dateShort := at.UTC().Format(amzDateShort)

	r.Header.Set("X-Amz-Date", amzDate)
	r.Header.Set("Host", "secretsmanager.example.com")
	r.Header.Set("X-Amz-Target", "secretsmanager.GetSecretValue")

	signedHeaders := []string{"host", "x-amz-date", "x-amz-target"}
	bodyHash := hashSHA256(body)
	creq := canonicalRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header, signedHeaders, bodyHash)
	creqHash := hashSHA256([]byte(creq))

	credentialScope := strings.Join([]string{dateShort, testRegion, testService, scopeTerminator}, "/")
	sts := stringToSign(amzDate, credentialScope, creqHash)

	key := signingKey(testAccessKeySecret, dateShort, testRegion, testService)
	sig := hex256(hmacSHA256(key, []byte(sts)))

	auth := algorithm + " Credential=" + testAccessKeyID + "/" + credentialScope +
		", SignedHeaders=" + strings.Join(signedHeaders, ";") + ", Signature=" + sig
	r.Header.Set("Authorization", auth)

	return r
}

func newTestGate(now time.Time) *AuthGate {
	g := NewAuthGate(Identity{AccessKeyID: testAccessKeyID, AccessKeySecret: testAccessKeySecret})
	g.Now = func() time.Time { return now }
	return g
}

func TestAuthGateVerify_Success(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	gate := newTestGate(now)
	body := []byte(`{"SecretId":"db/password"}`)
	r := signedRequest(t, gate, http.MethodPost, "/", body, now)

	got, err := gate.Verify(r)
	if err != nil {
		t.Fatalf("Verify() error = %v, want nil", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("Verify() returned body %q, want %q", got, body)
	}

	replay, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("reading restored body: %v", err)
	}
	if !bytes.Equal(replay, body) {
		t.Fatalf("restored request body = %q, want %q", replay, body)
	}
}

func TestAuthGateVerify_MissingAuthorizationHeader(t *testing.T) {
	gate := newTestGate(time.Now())
	r := httptest.NewRequest(http.MethodPost, "/", nil)

	_, err := gate.Verify(r)
	assertKind(t, err, apierrors.ErrMissingAuthenticationToken)
}

func TestAuthGateVerify_UnknownAccessKey(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	gate := newTestGate(now)
	body := []byte(`{}`)
	r := signedRequest(t, gate, http.MethodPost, "/", body, now)

	r.Header.Set("Authorization", strings.Replace(r.Header.Get("Authorization"), testAccessKeyID, "AKIDUNKNOWN", 1))

	_, err := gate.Verify(r)
	assertKind(t, err, apierrors.ErrInvalidClientTokenId)
}

func TestAuthGateVerify_TamperedBody(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	gate := newTestGate(now)
	body := []byte(`{"SecretId":"db/password"}`)
	r := signedRequest(t, gate, http.MethodPost, "/", body, now)

	r.Body = io.NopCloser(bytes.NewReader([]byte(`{"SecretId":"db/password-tampered"}`)))

	_, err := gate.Verify(r)
	assertKind(t, err, apierrors.ErrSignatureDoesNotMatch)
}

func TestAuthGateVerify_ClockSkew(t *testing.T) {
	signTime := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	serverNow := signTime.Add(6 * time.Minute)
	gate := newTestGate(serverNow)
	body := []byte(`{}`)
	r := signedRequest(t, gate, http.MethodPost, "/", body, signTime)

	_, err := gate.Verify(r)
	assertKind(t, err, apierrors.ErrInvalidRequestException)
}

func TestAuthGateVerify_IncompleteSignature(t *testing.T) {
	gate := newTestGate(time.Now())
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Authorization", algorithm+" Credential=foo/20260731/us-east-1/secretsmanager/aws4_request")

	_, err := gate.Verify(r)
	assertKind(t, err, apierrors.ErrIncompleteSignature)
}

func assertKind(t *testing.T, err error, want *apierrors.APIError) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want kind %s", want.Kind)
	}
	got, ok := err.(*apierrors.APIError)
	if !ok {
		t.Fatalf("error = %v (%T), want *apierrors.APIError", err, err)
	}
	if got.Kind != want.Kind {
		t.Fatalf("error kind = %s, want %s", got.Kind, want.Kind)
	}
}
