package auth

import (
	"context"
	"net/http"
	"net/url"
)

// LoginPath is where anonymous users are sent for protected pages.
const LoginPath = "/auth/login/"

type contextKey string

const userIDKey contextKey = "userID"

// Middleware gates protected routes on a valid session.
type Middleware struct {
	sessions *SessionService
}

// NewMiddleware creates auth middleware over the session service.
func NewMiddleware(sessions *SessionService) *Middleware {
	return &Middleware{sessions: sessions}
}

// RequireAuthWithRedirect requires a valid session and redirects
// anonymous users to the login page, carrying the originally requested
// path in the next parameter.
func (m *Middleware) RequireAuthWithRedirect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := m.resolve(r)
		if !ok {
			http.Redirect(w, r, LoginRedirectURL(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
	})
}

// OptionalAuth adds the user to the context when a valid session is
// present and continues either way.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, ok := m.resolve(r); ok {
			r = r.WithContext(withUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) resolve(r *http.Request) (string, bool) {
	sessionID, err := GetFromRequest(r)
	if err != nil {
		return "", false
	}
	userID, err := m.sessions.Validate(r.Context(), sessionID)
	if err != nil {
		return "", false
	}
	return userID, true
}

// LoginRedirectURL builds the login URL with the next parameter set to
// the given path.
func LoginRedirectURL(next string) string {
	v := url.Values{"next": {next}}
	return LoginPath + "?" + v.Encode()
}

func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID retrieves the authenticated user ID from the request
// context, or an empty string for anonymous requests.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// IsAuthenticated reports whether the context carries a user.
func IsAuthenticated(ctx context.Context) bool {
	return GetUserID(ctx) != ""
}
