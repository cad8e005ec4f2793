// Package services – AuthService
//
// One canonical identity contract: signup, login, current-user. Tokens are
// stateless JWT bearers; logout is client-side token disposal.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/healthsphere/go-health-backend/internal/auth"
	"github.com/healthsphere/go-health-backend/internal/domain"
	"github.com/healthsphere/go-health-backend/internal/repo"
)

// AuthService implements signup and login.
type AuthService struct {
	DB     *gorm.DB
	Tokens *auth.TokenIssuer
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{DB: db, Tokens: tokens}
}

// Signup creates an account and returns the user with a signed token.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.TrimSpace(email)
	if !auth.ValidEmail(email) {
		return nil, "", ErrInvalidEmail
	}
	if len(password) < auth.MinPasswordLen {
		return nil, "", ErrWeakPassword
	}

	if _, err := repo.GetUserByEmail(ctx, s.DB, email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, "", err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	user, err := repo.CreateUser(ctx, s.DB, email, hash)
	if err != nil {
		// The unique index closes the check-then-create race.
		if isUniqueViolation(err) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}

	token, err := s.Tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	log.Info().Str("user_id", user.ID).Msg("account created")
	return user, token, nil
}

// Login verifies credentials and returns the user with a signed token.
// Unknown email and wrong password are deliberately indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := repo.GetUserByEmail(ctx, s.DB, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, "", ErrBadCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, "", ErrBadCredentials
	}

	token, err := s.Tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// CurrentUser resolves a verified token subject to its account, or
// repo.ErrNotFound for a stale token.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	return repo.GetUser(ctx, s.DB, userID)
}

// isUniqueViolation reports whether err is a unique-constraint failure from
// the SQLite driver.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
