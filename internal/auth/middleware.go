package auth

import (
	"net/http"
)

// RefreshSession reissues the session cookie once a valid token is more than
// halfway through its lifetime. Requests are never rejected here.
func (h *AuthHandler) RefreshSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err == nil {
			if s, err := h.parse(cookie.Value); err == nil && !s.expiresAt.IsZero() {
				if s.expiresAt.Sub(h.now()) < TokenDuration/2 {
					if token, err := h.GenerateToken(s.userID); err == nil {
						http.SetCookie(w, h.SessionCookie(token))
					}
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
