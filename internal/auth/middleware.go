package auth

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	apierrors "github.com/bleepstore/bleepstore/internal/errors"
)

// skipPaths never require authentication.
var skipPaths = map[string]bool{
	"/health":       true,
	"/metrics":      true,
	"/docs":         true,
	"/docs/":        true,
	"/openapi":      true,
	"/openapi.json": true,
}

// Middleware enforces SigV4 request authentication on every request except
// the paths in skipPaths. On success it replaces the request body with the
// bytes AuthGate already buffered, so the Router reads byte-identical
// content to what was signed; on failure it writes the mapped error
// response directly and never calls next.
func Middleware(gate *AuthGate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			body, err := gate.Verify(r)
			if err != nil {
				apiErr := apierrors.AsAPIError(err)
				slog.Warn("request authentication failed", "kind", apiErr.Kind, "path", r.URL.Path)
				apiErr.WriteJSON(w)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
