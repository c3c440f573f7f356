package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/activity"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/auth"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/permission"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/repository"
)

// UserStore looks up admin users
type UserStore interface {
	FindUserByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	FindUserByID(ctx context.Context, id int64) (*models.AdminUser, error)
	TouchLastLogin(ctx context.Context, id int64) error
}

// LoginResult is returned on a successful login
type LoginResult struct {
	Token       string           `json:"token"`
	ExpiresAt   time.Time        `json:"expires_at"`
	User        models.AdminUser `json:"user"`
	Permissions []string         `json:"permissions"`
}

// AuthService logs admins in and turns bearer tokens into callers.
type AuthService struct {
	users  UserStore
	gate   *permission.Gate
	tokens *auth.JWTManager
	hasher *auth.PasswordHasher
	audit  recorder
	log    *slog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, gate *permission.Gate, tokens *auth.JWTManager, hasher *auth.PasswordHasher, sink activity.Sink, log *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		gate:   gate,
		tokens: tokens,
		hasher: hasher,
		audit:  recorder{sink: sink, entityType: "admin_user"},
		log:    log,
	}
}

// Login checks the credentials of an active user and issues a token.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password, ip string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalid("username and password are required")
	}

	user, err := s.users.FindUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	caps, err := s.gate.Resolve(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}

	token, expires, err := s.tokens.Generate(user.ID, user.Username, user.RoleID)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		s.log.Warn("failed to update last login", "user_id", user.ID, "error", err)
	}
	caller := Caller{UserID: user.ID, Username: user.Username, RoleID: user.RoleID, Caps: caps, IPAddress: ip}
	s.audit.record(ctx, caller, ActionLogin, user.ID, map[string]any{"username": user.Username})

	return &LoginResult{
		Token:       token,
		ExpiresAt:   expires,
		User:        *user,
		Permissions: caps.Tokens(),
	}, nil
}

// Authenticate validates a bearer token, reloads the user and resolves the
// capability set from the user's current role.
func (s *AuthService) Authenticate(ctx context.Context, token, ip string) (Caller, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return Caller{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	user, err := s.users.FindUserByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return Caller{}, fmt.Errorf("%w: user not found or inactive", ErrUnauthenticated)
	}
	if err != nil {
		return Caller{}, err
	}

	caps, err := s.gate.Resolve(ctx, user.RoleID)
	if err != nil {
		return Caller{}, err
	}

	return Caller{
		UserID:    user.ID,
		Username:  user.Username,
		RoleID:    user.RoleID,
		Caps:      caps,
		IPAddress: ip,
	}, nil
}
