package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/cipherdrive/internal/dbx"
	"github.com/dmitrijs2005/cipherdrive/internal/server/repositories/nodes"
	"github.com/dmitrijs2005/cipherdrive/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/cipherdrive/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so a service can
// run several repositories against one shared transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Nodes(db dbx.DBTX) nodes.Repository
}
