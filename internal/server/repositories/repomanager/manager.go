package repomanager

import (
	"context"
	"database/sql"

	"github.com/avoronov/contenthub/internal/dbx"
	"github.com/avoronov/contenthub/internal/server/repositories/conversations"
	"github.com/avoronov/contenthub/internal/server/repositories/images"
	"github.com/avoronov/contenthub/internal/server/repositories/turns"
	"github.com/avoronov/contenthub/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pooled *sql.DB or
// a transaction handle, so a service can run several writes atomically with
// dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Conversations(db dbx.DBTX) conversations.Repository
	Turns(db dbx.DBTX) turns.Repository
	Images(db dbx.DBTX) images.Repository
}
