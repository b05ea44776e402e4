package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"goalfin/internal/core"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserStore is the persistence contract behind registration and login.
type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	UserByEmail(ctx context.Context, email string) (core.User, error)
	UserByID(ctx context.Context, id string) (core.User, error)
}

// Service handles registration, login and profile lookups.
type Service struct {
	store  UserStore
	tokens *TokenManager
}

func NewService(store UserStore, tokens *TokenManager) *Service {
	return &Service{store: store, tokens: tokens}
}

// Session is the result of a successful register or login.
type Session struct {
	Token string    `json:"token"`
	User  core.User `json:"user"`
}

func (s *Service) Register(ctx context.Context, name, email, password string) (Session, error) {
	email = normalizeEmail(email)
	user := core.User{Name: strings.TrimSpace(name), Email: email}
	if err := user.Validate(); err != nil {
		return Session{}, err
	}

	if _, err := s.store.UserByEmail(ctx, email); err == nil {
		return Session{}, ErrEmailTaken
	} else if !errors.Is(err, core.ErrNotFound) {
		return Session{}, fmt.Errorf("check existing email: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Session{}, err
	}
	user.PasswordHash = hash

	created, err := s.store.CreateUser(ctx, user)
	if err != nil {
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Generate(created.ID, created.Email, false)
	if err != nil {
		return Session{}, err
	}

	slog.InfoContext(ctx, "User registered", "user_id", created.ID)
	return Session{Token: token, User: scrub(created)}, nil
}

func (s *Service) Login(ctx context.Context, email, password string, remember bool) (Session, error) {
	user, err := s.store.UserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, core.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}

	if !CheckPassword(user.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Email, remember)
	if err != nil {
		return Session{}, err
	}

	slog.InfoContext(ctx, "User logged in", "user_id", user.ID, "remember", remember)
	return Session{Token: token, User: scrub(user)}, nil
}

// Profile returns the user behind an authenticated request.
func (s *Service) Profile(ctx context.Context, userID string) (core.User, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return core.User{}, err
	}
	return scrub(user), nil
}

// Verify delegates token validation to the token manager, for transport
// middleware.
func (s *Service) Verify(token string) (*Claims, error) {
	return s.tokens.Verify(token)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// scrub drops the password hash before a user leaves the service.
func scrub(u core.User) core.User {
	u.PasswordHash = ""
	return u
}
