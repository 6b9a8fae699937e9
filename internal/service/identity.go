// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, never *sqlite.DB, so tests can pass
// in-memory fakes. The CLI calls the same services as the HTTP handlers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/metrics"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/repository"
)

// IdentityProvider is the external OAuth provider, seen as a black box
// that turns a code into a token and a token into a profile.
// *auth.GitHubProvider implements it.
type IdentityProvider interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*auth.GitHubUser, error)
}

var _ IdentityProvider = (*auth.GitHubProvider)(nil)

// IdentityService maps a provider login to a local User.
type IdentityService struct {
	provider IdentityProvider
	users    repository.UserRepository
	locks    *keyLock[int64]
	logger   *slog.Logger
}

// NewIdentityService creates an IdentityService.
func NewIdentityService(provider IdentityProvider, users repository.UserRepository, logger *slog.Logger) *IdentityService {
	return &IdentityService{
		provider: provider,
		users:    users,
		locks:    newKeyLock[int64](),
		logger:   logger,
	}
}

// LoginWithCode completes a login and returns the local user.
//
// Steps:
//  1. Exchange the code for an access token (apperror.ErrProviderExchange)
//  2. Fetch the provider profile (apperror.ErrProviderProfile)
//  3. Return the existing user for that provider account, or
//  4. Create one from the profile
//
// An existing user is returned as stored; profile changes on GitHub are not
// copied over.
//
// FIRST-LOGIN RACE:
// Two concurrent first logins for the same account would both miss in step
// 3. Resolution is serialised per GitHub ID (the lock is taken only after
// both network calls), and the UNIQUE constraint on github_id backs that
// up: if the INSERT still loses, the winner's row is re-read.
func (s *IdentityService) LoginWithCode(ctx context.Context, code string) (*model.User, error) {
	if code == "" {
		return nil, apperror.ValidationFailed("code", "authorization code is required")
	}

	accessToken, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		metrics.Logins.WithLabelValues("failed").Inc()
		s.logger.Warn("provider code exchange failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/identity: %w", err)
	}

	profile, err := s.provider.FetchProfile(ctx, accessToken)
	if err != nil {
		metrics.Logins.WithLabelValues("failed").Inc()
		s.logger.Warn("provider profile fetch failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/identity: %w", err)
	}

	unlock := s.locks.Lock(profile.ID)
	defer unlock()

	user, err := s.users.GetUserByGitHubID(ctx, profile.ID)
	if err == nil {
		metrics.Logins.WithLabelValues("existing").Inc()
		s.logger.Info("user logged in",
			slog.String("userID", user.ID),
			slog.String("login", user.GitHubLogin),
		)
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/identity: looking up github user %d: %w", profile.ID, err)
	}

	user = &model.User{
		Name:        profile.Name,
		GitHubID:    profile.ID,
		GitHubLogin: profile.Login,
	}
	if user.Name == "" {
		user.Name = profile.Login
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("service/identity: creating user (githubID=%d): %w", profile.ID, err)
		}

		// Another process created the row between our read and write.
		existing, rerr := s.users.GetUserByGitHubID(ctx, profile.ID)
		if rerr != nil {
			return nil, fmt.Errorf("service/identity: re-reading user after conflict (githubID=%d): %w", profile.ID, rerr)
		}
		metrics.Logins.WithLabelValues("existing").Inc()
		return existing, nil
	}

	metrics.Logins.WithLabelValues("created").Inc()
	s.logger.Info("user created on first login",
		slog.String("userID", user.ID),
		slog.String("login", user.GitHubLogin),
	)
	return user, nil
}

// GetUser returns the user with the given internal ID.
func (s *IdentityService) GetUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/identity: user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/identity: fetching user %s: %w", id, err)
	}
	return user, nil
}

// FindUser resolves a handle (or GitHub login) to a user. Used by the CLI.
func (s *IdentityService) FindUser(ctx context.Context, handle string) (*model.User, error) {
	user, err := s.users.GetUserByHandle(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("service/identity: finding user %q: %w", handle, err)
	}
	return user, nil
}
