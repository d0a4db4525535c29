// Package auth provides user accounts, login sessions and the HTTP
// middleware that gates protected pages.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkraev/yanote/internal/db"
)

// User errors.
var (
	ErrUsernameTaken     = errors.New("username already registered")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrWeakPassword      = errors.New("password too short")
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// User is a resolved account identity.
type User struct {
	ID       string
	Username string
}

// UserService handles registration and credential checks.
type UserService struct {
	store *db.Store
}

// NewUserService creates a user service backed by the given store.
func NewUserService(store *db.Store) *UserService {
	return &UserService{store: store}
}

// Register creates an account with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:       uuid.New().String(),
		Username: username,
	}
	err = s.store.CreateUser(ctx, db.UserRecord{
		ID:           user.ID,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().Unix(),
	})
	if errors.Is(err, db.ErrUsernameTaken) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate verifies a username/password pair. The error is the same
// for an unknown username and a wrong password.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*User, error) {
	record, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, db.ErrNotFound) {
		// Equalize timing with the known-user path.
		bcrypt.CompareHashAndPassword([]byte("$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva"), []byte(password))
		return nil, ErrInvalidCredential
	}
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredential
	}
	return &User{ID: record.ID, Username: record.Username}, nil
}

// Get fetches an account by id.
func (s *UserService) Get(ctx context.Context, id string) (*User, error) {
	record, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	return &User{ID: record.ID, Username: record.Username}, nil
}
