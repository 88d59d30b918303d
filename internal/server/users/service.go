package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/nfmw/ttserver/internal/common"
	"github.com/nfmw/ttserver/internal/cryptox"
	"github.com/nfmw/ttserver/internal/logging"
)

// SessionManager is the slice of the session service the account paths
// depend on.
type SessionManager interface {
	Issue(ctx context.Context, userID int32) (string, error)
	Verify(ctx context.Context, token string) (int32, error)
	RevokeAll(ctx context.Context, userID int32) error
}

// Service implements account registration, password login, token
// authentication, and credential rotation on top of the repository.
type Service struct {
	repo     Repository
	sessions SessionManager
	logger   logging.Logger
}

func NewService(repo Repository, sessions SessionManager, logger logging.Logger) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		logger:   logger.With("module", "users"),
	}
}

// Register creates a local account. The username must be free and the
// password must satisfy the policy enforced by cryptox.ValidatePassword.
func (s *Service) Register(ctx context.Context, username string, password string) (*User, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username is empty", common.ErrorValidation)
	}
	if !cryptox.ValidatePassword(password) {
		return nil, common.ErrorWeakPassword
	}

	exists, err := s.repo.Exists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%w: checking username: %w", common.ErrorInternal, err)
	}
	if exists {
		return nil, common.ErrorUsernameTaken
	}

	salt, err := cryptox.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("%w: generating salt: %w", common.ErrorInternal, err)
	}

	user := &User{
		Username:     username,
		PasswordHash: cryptox.HashPassword(password, salt),
		PasswordSalt: salt,
	}
	if err := s.repo.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: storing user: %w", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "account registered", "user_id", user.ID)
	return user, nil
}

// Login verifies a password and issues a fresh session token, displacing
// any token the account already held. Accounts flagged for a forced
// password change never receive a token.
func (s *Service) Login(ctx context.Context, username string, password string) (*User, string, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrorUnauthorized
		}
		return nil, "", fmt.Errorf("%w: loading user: %w", common.ErrorInternal, err)
	}

	// Federated accounts carry no credential material and cannot take
	// the password path at all.
	if !user.IsLocal() {
		return nil, "", common.ErrorUnauthorized
	}

	hash := cryptox.HashPassword(password, user.PasswordSalt)
	if !cryptox.ConstantTimeEquals(hash, user.PasswordHash) {
		return nil, "", common.ErrorUnauthorized
	}

	if user.MustChangePassword {
		return nil, "", common.ErrorPasswordChangeRequired
	}

	token, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info(ctx, "login", "user_id", user.ID)
	return user, token, nil
}

// Authenticate resolves a bearer token to its account.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	userID, err := s.sessions.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Token row outlived its user; treat it as revoked.
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: loading user: %w", common.ErrorInternal, err)
	}

	return user, nil
}

// ChangePassword rotates a local account's credentials. The old password
// must verify and the new one must satisfy the policy. All sessions are
// revoked, so every client logs in again with the new password.
func (s *Service) ChangePassword(ctx context.Context, userID int32, oldPassword string, newPassword string) error {
	if !cryptox.ValidatePassword(newPassword) {
		return common.ErrorWeakPassword
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return fmt.Errorf("%w: loading user: %w", common.ErrorInternal, err)
	}

	if !user.IsLocal() {
		return common.ErrorUnauthorized
	}

	hash := cryptox.HashPassword(oldPassword, user.PasswordSalt)
	if !cryptox.ConstantTimeEquals(hash, user.PasswordHash) {
		return common.ErrorUnauthorized
	}

	salt, err := cryptox.GenerateSalt()
	if err != nil {
		return fmt.Errorf("%w: generating salt: %w", common.ErrorInternal, err)
	}

	newHash := cryptox.HashPassword(newPassword, salt)
	if err := s.repo.UpdateCredentials(ctx, userID, newHash, salt, false); err != nil {
		return fmt.Errorf("%w: updating credentials: %w", common.ErrorInternal, err)
	}

	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return err
	}

	s.logger.Info(ctx, "password changed", "user_id", userID)
	return nil
}
