package sessions

import "context"

type Repository interface {
	Insert(ctx context.Context, userID int32, token string) error
	DeleteAllForUser(ctx context.Context, userID int32) error
	// GetUserByToken resolves a presented token, or common.ErrorNotFound.
	GetUserByToken(ctx context.Context, token string) (int32, error)
	// GetTokenByUser returns the user's live token, or common.ErrorNotFound.
	GetTokenByUser(ctx context.Context, userID int32) (string, error)
}
