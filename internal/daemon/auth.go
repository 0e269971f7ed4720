package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"ainotes/internal/api"
)

// userHeader carries the caller identity established by the fronting
// authentication layer.
const userHeader = "X-User-ID"

// authMiddleware returns a middleware that validates bearer tokens.
// If token is empty, no authentication is required and all requests pass through.
// Otherwise, requests must include "Authorization: Bearer <token>" header.
func (s *apiServer) authMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			s.writeError(w, http.StatusUnauthorized, api.CodeUnauthorized, "missing bearer token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(auth, "Bearer ")), []byte(token)) != 1 {
			s.writeError(w, http.StatusUnauthorized, api.CodeUnauthorized, "invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireUser resolves the caller or writes 401 INVALID_SESSION.
func (s *apiServer) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get(userHeader))
	if userID == "" {
		s.writeError(w, http.StatusUnauthorized, api.CodeInvalidSession, "")
		return "", false
	}
	return userID, true
}
