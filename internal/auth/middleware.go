package auth

import (
	"context"
	"net/http"
)

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "session_id"

// contextKey is an unexported type used for context keys in this package.
// Only this package can create keys of this type, so no other package can
// read or shadow the values stored under them.
type contextKey string

const (
	userIDKey   contextKey = "userID"
	identityKey contextKey = "identity"
)

// RequireAuth is a middleware that enforces authentication on write routes.
//
// It resolves the session cookie through the registry and stores the
// resulting Identity in the request context. If there is no live session it
// answers 401 Unauthorized and stops the request chain.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(sessions *SessionRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := sessions.Require(SessionToken(r))
			if err != nil {
				http.Error(w, "Authentication required!", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			ctx = context.WithValue(ctx, userIDKey, identity.UserID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves the session cookie if there is one, but never
// blocks the request. Reading the feed is public; a resolved user only
// changes what the page shows (logout link, delete buttons).
func OptionalAuth(sessions *SessionRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, ok := sessions.Resolve(SessionToken(r)); ok {
				ctx := context.WithValue(r.Context(), userIDKey, userID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext retrieves the resolved user's ID from the request context.
// Returns ("", false) for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// IdentityFromContext retrieves the Identity stored by RequireAuth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok && !identity.IsZero()
}

// SessionToken returns the session cookie's value, or "" if absent.
func SessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		// http.ErrNoCookie just means the request is anonymous.
		return ""
	}
	return cookie.Value
}

// SetSessionCookie stores token in an HttpOnly cookie without Expires or
// Max-Age, so the browser drops it when the browser session ends.
func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to delete the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
