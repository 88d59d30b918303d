package users

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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	user := &User{}
	var phash sql.NullString
	var psalt []byte
	var createdAt sql.NullTime

	err := row.Scan(&user.ID, &user.Username, &phash, &psalt, &user.MustChangePassword, &createdAt)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = phash.String
	user.PasswordSalt = psalt
	user.CreatedAt = createdAt.Time
	return user, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query :=
		`SELECT id, username, phash, psalt, must_change_password, created_at FROM users
		 WHERE username = $1
		 `

	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int32) (*User, error) {
	query :=
		`SELECT id, username, phash, psalt, must_change_password, created_at FROM users
		 WHERE id = $1
		 `

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, username string) (bool, error) {
	query :=
		`SELECT COUNT(*) FROM users WHERE username = $1`

	var count int64
	err := r.db.QueryRowContext(ctx, query, username).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}

	return count > 0, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, user *User) error {
	query :=
		`INSERT INTO users (username, phash, psalt, must_change_password)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (username) DO UPDATE
		 SET phash = EXCLUDED.phash,
		     psalt = EXCLUDED.psalt,
		     must_change_password = EXCLUDED.must_change_password
		 RETURNING id
		 `

	phash := sql.NullString{String: user.PasswordHash, Valid: user.PasswordHash != ""}

	err := r.db.QueryRowContext(ctx, query,
		user.Username, phash, user.PasswordSalt, user.MustChangePassword).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}

func (r *PostgresRepository) UpdateCredentials(ctx context.Context, id int32, hash string, salt []byte, mustChange bool) error {
	query :=
		`UPDATE users
		 SET phash = $1, psalt = $2, must_change_password = $3
		 WHERE id = $4
		 `

	_, err := r.db.ExecContext(ctx, query, hash, salt, mustChange, id)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}
