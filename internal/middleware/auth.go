package middleware

import (
	"net/http"
	"strings"

	"github.com/playblyza/blyza/internal/auth"
)

// RequireAuth validates the identity provider's bearer token and
// populates the request's Identity. JSON 401 on failure; this is an API,
// not a page, so there is no login redirect.
func RequireAuth(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w)
				return
			}

			id, err := verifier.Verify(token)
			if err != nil {
				unauthorized(w)
				return
			}

			// The request logger wraps the writer before auth runs, so
			// the account is handed back through it rather than through
			// a context the outer middleware never sees.
			if rec, ok := w.(*statusRecorder); ok {
				rec.account = id.UserID
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	// WebSocket clients can't set headers from the browser API.
	return r.URL.Query().Get("token")
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized"}`))
}
