package auth

import (
	"bytes"
	"crypto/subtle"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	apierrors "github.com/bleepstore/bleepstore/internal/errors"
)

// ClockSkew is the maximum allowed difference between server time and the
// request's signing timestamp (spec.md §4.2 step 6).
const ClockSkew = 5 * time.Minute

// Identity is the single configured reference credential pair AuthGate
// verifies inbound requests against.
type Identity struct {
	AccessKeyID     string
	AccessKeySecret string
}

// AuthGate is a pure function over its inputs: given a configured Identity
// and a request, it decides accept/reject with a specific error kind. It
// holds no state beyond the Identity and an injectable clock for tests.
type AuthGate struct {
	Identity Identity
	Now      func() time.Time
}

// NewAuthGate returns an AuthGate enforcing identity, using time.Now as the
// server clock.
func NewAuthGate(identity Identity) *AuthGate {
	return &AuthGate{Identity: identity, Now: time.Now}
}

func (g *AuthGate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

type parsedAuthorization struct {
	credential    string
	signedHeaders []string
	signature     string
}

// Verify implements spec.md §4.2's nine steps. On success it returns the
// request body bytes, already drained from r.Body and restored onto it, so
// the caller (and everything downstream) sees byte-identical content to
// what was signed.
func (g *AuthGate) Verify(r *http.Request) ([]byte, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, apierrors.ErrMissingAuthenticationToken
	}
	if !utf8.ValidString(authHeader) {
		return nil, apierrors.ErrInvalidRequestException.WithMessage("Authorization header is not valid UTF-8")
	}

	parsed, err := parseAuthorizationHeader(authHeader)
	if err != nil {
		return nil, err
	}

	accessKeyID, date, region, service, err := parseCredential(parsed.credential)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(accessKeyID), []byte(g.Identity.AccessKeyID)) != 1 {
		return nil, apierrors.ErrInvalidClientTokenId
	}

	reqTime, err := resolveRequestTime(r.Header)
	if err != nil {
		return nil, err
	}

	if skew := g.now().Sub(reqTime); skew > ClockSkew || skew < -ClockSkew {
		return nil, apierrors.ErrInvalidRequestException.WithMessage("Signature expired or not yet valid")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, apierrors.ErrInvalidRequestException.WithMessage("could not read request body")
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	bodyHash := hashSHA256(body)
	creq := canonicalRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header, parsed.signedHeaders, bodyHash)
	creqHash := hashSHA256([]byte(creq))

	credentialScope := strings.Join([]string{date, region, service, scopeTerminator}, "/")
	sts := stringToSign(reqTime.UTC().Format(amzDateFormat), credentialScope, creqHash)

	key := signingKey(g.Identity.AccessKeySecret, date, region, service)
	expectedSig := hex256(hmacSHA256(key, []byte(sts)))

	if subtle.ConstantTimeCompare([]byte(expectedSig), []byte(parsed.signature)) != 1 {
		return nil, apierrors.ErrSignatureDoesNotMatch
	}

	return body, nil
}

// parseAuthorizationHeader splits "AWS4-HMAC-SHA256 Credential=..., ..."
// into its Credential/SignedHeaders/Signature components.
func parseAuthorizationHeader(raw string) (*parsedAuthorization, error) {
	fields := strings.SplitN(raw, " ", 2)
	if len(fields) != 2 || fields[0] != algorithm {
		return nil, apierrors.ErrIncompleteSignature
	}

	out := &parsedAuthorization{}
	for _, part := range strings.Split(fields[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, apierrors.ErrIncompleteSignature
		}
		switch kv[0] {
		case "Credential":
			out.credential = kv[1]
		case "SignedHeaders":
			if kv[1] == "" {
				return nil, apierrors.ErrIncompleteSignature
			}
			out.signedHeaders = strings.Split(kv[1], ";")
		case "Signature":
			out.signature = kv[1]
		}
	}

	if out.credential == "" || len(out.signedHeaders) == 0 || out.signature == "" {
		return nil, apierrors.ErrIncompleteSignature
	}
	return out, nil
}

// parseCredential splits "access_key_id/yyyymmdd/region/service/aws4_request".
func parseCredential(raw string) (accessKeyID, date, region, service string, err error) {
	parts := strings.Split(raw, "/")
	if len(parts) != 5 || parts[4] != scopeTerminator {
		return "", "", "", "", apierrors.ErrIncompleteSignature
	}
	return parts[0], parts[1], parts[2], parts[3], nil
}

// resolveRequestTime reads the signing timestamp from x-amz-date (compact
// ISO8601) or else Date (IMF-fixdate, RFC850, or asctime, via the stdlib's
// three-format cascade), per spec.md §4.2 step 5.
func resolveRequestTime(h http.Header) (time.Time, error) {
	if amzDate := h.Get("X-Amz-Date"); amzDate != "" {
		t, err := time.Parse(amzDateFormat, amzDate)
		if err != nil {
			return time.Time{}, apierrors.ErrInvalidRequestException.WithMessage("invalid X-Amz-Date")
		}
		return t, nil
	}
	if dateHeader := h.Get("Date"); dateHeader != "" {
		t, err := http.ParseTime(dateHeader)
		if err != nil {
			return time.Time{}, apierrors.ErrInvalidRequestException.WithMessage("invalid Date header")
		}
		return t, nil
	}
	return time.Time{}, apierrors.ErrInvalidRequestException.WithMessage("missing X-Amz-Date or Date header")
}
