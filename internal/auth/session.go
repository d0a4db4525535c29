package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mkraev/yanote/internal/db"
)

// Session errors.
var (
	ErrSessionNotFound = errors.New("session not found")
)

// Session configuration.
const (
	DefaultSessionDuration = 30 * 24 * time.Hour
	SessionIDLength        = 32 // 256 bits
	SessionCookieName      = "session_id"
)

// secureCookies toggles the Secure flag on session cookies. Tests and
// local plain-HTTP runs turn it off.
var secureCookies = true

// SetSecureCookies configures whether session cookies require HTTPS.
func SetSecureCookies(secure bool) {
	secureCookies = secure
}

// SessionService handles session management.
type SessionService struct {
	store    *db.Store
	duration time.Duration
}

// NewSessionService creates a session service. A zero duration falls
// back to DefaultSessionDuration.
func NewSessionService(store *db.Store, duration time.Duration) *SessionService {
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	return &SessionService{store: store, duration: duration}
}

// Create creates a new session for a user and returns the session ID,
// which belongs in a cookie.
func (s *SessionService) Create(ctx context.Context, userID string) (string, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return "", fmt.Errorf("generate session ID: %w", err)
	}

	now := time.Now()
	err = s.store.UpsertSession(ctx, db.SessionRecord{
		SessionID: sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(s.duration).Unix(),
		CreatedAt: now.Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return sessionID, nil
}

// Validate checks a session and returns the owning user ID.
func (s *SessionService) Validate(ctx context.Context, sessionID string) (string, error) {
	session, err := s.store.GetValidSession(ctx, sessionID)
	if errors.Is(err, db.ErrNotFound) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	return session.UserID, nil
}

// Delete removes a session (logout).
func (s *SessionService) Delete(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Cleanup removes expired sessions. Intended for a background ticker.
func (s *SessionService) Cleanup(ctx context.Context) error {
	if err := s.store.DeleteExpiredSessions(ctx); err != nil {
		return fmt.Errorf("cleanup expired sessions: %w", err)
	}
	return nil
}

// Cookie helpers

// SetCookie sets the session cookie on the response.
func SetCookie(w http.ResponseWriter, sessionID string, duration time.Duration) {
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(duration.Seconds()),
	})
}

// ClearCookie removes the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// GetFromRequest retrieves the session ID from the request cookie.
func GetFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrSessionNotFound
		}
		return "", err
	}
	return cookie.Value, nil
}

func generateSessionID() (string, error) {
	b := make([]byte, SessionIDLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
