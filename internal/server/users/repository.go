package users

import "context"

type Repository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id int32) (*User, error)
	Exists(ctx context.Context, username string) (bool, error)
	// Upsert inserts the user or, when the username is taken, replaces its
	// credential fields. The user's ID is populated on return.
	Upsert(ctx context.Context, user *User) error
	UpdateCredentials(ctx context.Context, id int32, hash string, salt []byte, mustChange bool) error
}
