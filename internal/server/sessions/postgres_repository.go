package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nfmw/ttserver/internal/common"
	"github.com/nfmw/ttserver/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, userID int32, token string) error {

	query :=
		`INSERT INTO session_tokens (user_id, token)
		 VALUES ($1, $2)
		 `

	_, err := r.db.ExecContext(ctx, query, userID, token)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}

func (r *PostgresRepository) DeleteAllForUser(ctx context.Context, userID int32) error {

	query :=
		`DELETE FROM session_tokens WHERE user_id = $1`

	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetUserByToken(ctx context.Context, token string) (int32, error) {

	query :=
		`SELECT user_id FROM session_tokens WHERE token = $1`

	var userID int32
	err := r.db.QueryRowContext(ctx, query, token).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}

	return userID, nil
}

func (r *PostgresRepository) GetTokenByUser(ctx context.Context, userID int32) (string, error) {

	query :=
		`SELECT token FROM session_tokens WHERE user_id = $1`

	var token string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("error performing sql request: %w", err)
	}

	return token, nil
}
