package session

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey struct{}

type sessionValue struct {
	id    string
	store Store
}

// Middleware binds every request to a session. The session id travels in
// cookieName. Only ids the manager issued and still holds are honoured; an
// absent, malformed, unknown or expired id gets a fresh one, so a client
// cannot choose its own session id.
func Middleware(m *Manager, cookieName string) func(http.Handler) http.Handler {
	if cookieName == "" {
		cookieName = "dash_session"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				id    string
				store Store
			)
			if c, err := r.Cookie(cookieName); err == nil {
				if _, perr := uuid.Parse(c.Value); perr == nil {
					if st, ok := m.Lookup(c.Value); ok {
						id, store = c.Value, st
					}
				}
			}
			if store == nil {
				id = uuid.New().String()
				store = m.Acquire(r.Context(), id)
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
					Secure:   r.TLS != nil,
				})
			}

			ctx := NewContext(r.Context(), id, store)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewContext returns a context carrying the session.
func NewContext(ctx context.Context, id string, store Store) context.Context {
	return context.WithValue(ctx, contextKey{}, sessionValue{id: id, store: store})
}

// FromContext returns the session store bound to ctx.
func FromContext(ctx context.Context) (Store, bool) {
	v, ok := ctx.Value(contextKey{}).(sessionValue)
	if !ok {
		return nil, false
	}
	return v.store, true
}

// IDFromContext returns the session id bound to ctx.
func IDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(contextKey{}).(sessionValue)
	return v.id
}
