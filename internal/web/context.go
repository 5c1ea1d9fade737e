package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/datasweeper/internal/logging"
)

type sessionKey struct{}

// sessionHeader lets API clients name a session without cookies.
const sessionHeader = "X-Session-ID"

// sessionMiddleware resolves the X-Session-ID header or the session cookie
// to a live session, creating one when it is missing or expired, and stores
// its ID on the request context.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := r.Header.Get(sessionHeader)
		if current == "" {
			if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
				current = c.Value
			}
		}

		id, created := s.service.EnsureSession(current)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.Session.CookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.cfg.Session.SecureCookie,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   int(s.cfg.Session.TTL / time.Second),
			})
		}

		w.Header().Set(sessionHeader, id)

		ctx := context.WithValue(r.Context(), sessionKey{}, id)
		ctx = logging.WithSession(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionID returns the session resolved by sessionMiddleware.
func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey{}).(string)
	return id
}
