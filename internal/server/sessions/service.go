package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nfmw/ttserver/internal/common"
	"github.com/nfmw/ttserver/internal/cryptox"
	"github.com/nfmw/ttserver/internal/dbx"
	"github.com/nfmw/ttserver/internal/logging"
)

// maxSaltsPerToken bounds the challenge-response salt ledger per token.
// Tokens rotate on every login, so a legitimate client never gets near it.
const maxSaltsPerToken = 4096

// Service issues, verifies, and revokes session tokens.
type Service struct {
	db     *sql.DB
	repo   Repository
	ledger *saltLedger
	logger logging.Logger
}

func NewService(db *sql.DB, logger logging.Logger) *Service {
	return &Service{
		db:     db,
		repo:   NewPostgresRepository(db),
		ledger: newSaltLedger(maxSaltsPerToken),
		logger: logger.With("module", "sessions"),
	}
}

// Issue generates a new opaque token for the user and atomically replaces
// any existing tokens. Every previously issued token stops verifying the
// moment the transaction commits.
func (s *Service) Issue(ctx context.Context, userID int32) (string, error) {

	token, err := cryptox.NewSessionToken()
	if err != nil {
		return "", fmt.Errorf("%w: generating session token: %w", common.ErrorInternal, err)
	}

	var previous string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewPostgresRepository(tx)

		prev, err := repo.GetTokenByUser(ctx, userID)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		previous = prev

		if err := repo.DeleteAllForUser(ctx, userID); err != nil {
			return err
		}
		return repo.Insert(ctx, userID, token)
	})
	if err != nil {
		return "", fmt.Errorf("%w: issuing session token: %w", common.ErrorInternal, err)
	}

	if previous != "" {
		s.ledger.Forget(previous)
	}

	return token, nil
}

// Verify resolves a presented token to a user id. An unknown token is
// indistinguishable from a missing one: both report ErrorUnauthorized.
func (s *Service) Verify(ctx context.Context, token string) (int32, error) {
	if token == "" {
		return 0, common.ErrorUnauthorized
	}

	userID, err := s.repo.GetUserByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, common.ErrorUnauthorized
		}
		return 0, fmt.Errorf("%w: verifying session token: %w", common.ErrorInternal, err)
	}

	return userID, nil
}

// RevokeAll invalidates every token held by the user, used on logout and
// credential rotation.
func (s *Service) RevokeAll(ctx context.Context, userID int32) error {

	token, err := s.repo.GetTokenByUser(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w: revoking session tokens: %w", common.ErrorInternal, err)
	}

	if err := s.repo.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("%w: revoking session tokens: %w", common.ErrorInternal, err)
	}

	if token != "" {
		s.ledger.Forget(token)
	}
	return nil
}

// VerifyChallenge checks a challenge-response login attempt: the client
// picked a fresh random salt and sent (salt, SHA3-512(salt + token)). The
// digest is recomputed from the stored token and compared in constant
// time, and the salt must never have been used with this token before.
// Any failure reports ErrorUnauthorized without detail.
func (s *Service) VerifyChallenge(ctx context.Context, userID int32, salt []byte, digest string) error {
	if len(salt) == 0 || digest == "" {
		return common.ErrorValidation
	}

	token, err := s.repo.GetTokenByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return fmt.Errorf("%w: verifying challenge: %w", common.ErrorInternal, err)
	}

	expected := cryptox.ChallengeDigest(salt, token)
	if !cryptox.ConstantTimeEquals(expected, digest) {
		return common.ErrorUnauthorized
	}

	// Record the salt only after the digest checks out, so unauthenticated
	// traffic cannot fill the ledger.
	if !s.ledger.Remember(token, salt) {
		s.logger.Warn(ctx, "challenge salt replayed", "user_id", userID)
		return common.ErrorUnauthorized
	}

	return nil
}
