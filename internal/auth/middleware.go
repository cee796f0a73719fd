package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/sakif/task-manager/internal/model"
)

// SessionCookie is the name of the cookie holding the session token.
const SessionCookie = "session"

// contextKey is package-private so no other package can read or overwrite
// the principal stored in a request context.
type contextKey string

const userKey contextKey = "user"

// Resolver turns a session token into the user it belongs to. A nil user
// means anonymous; resolving never fails the request.
type Resolver interface {
	Resolve(ctx context.Context, token string) *model.User
}

// LoadSession reads the session cookie on every request and, when it
// resolves, stores the user in the request context. Anonymous requests pass
// through untouched; RequireAuth decides what to do with them.
func LoadSession(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
				if user := resolver.Resolve(r.Context(), cookie.Value); user != nil {
					r = r.WithContext(WithUser(r.Context(), user))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth guards page routes: anonymous requests are redirected to /login.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthAPI guards JSON routes, answering 401 instead of redirecting.
func RequireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized","message":"authentication required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser returns a copy of ctx carrying user as the current principal.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the current principal, or (nil, false) for an
// anonymous request.
//
//	user, ok := auth.UserFromContext(r.Context())
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// SetSessionCookie stores token in the HttpOnly session cookie.
//
// HttpOnly keeps it away from page scripts; SameSite=Lax means it is sent on
// top-level navigation but not on cross-site POSTs. secure should be true
// whenever the site is served over HTTPS.
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to drop the session cookie. It is
// safe to call with no session present.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
