package db

import (
	"context"
	"database/sql"

	"github.com/nfmw/ttserver/internal/server/records"
	"github.com/nfmw/ttserver/internal/server/sessions"
	"github.com/nfmw/ttserver/internal/server/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Users() users.Repository
	Sessions() sessions.Repository
	Records() records.Repository
	Close() error
}
