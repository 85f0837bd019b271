package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/wgportal/internal/portal/store"
	"github.com/aussiebroadwan/wgportal/internal/portal/store/drivers/sqlite/gen"
)

type txStore struct {
	tx *sql.Tx
	q  *gen.Queries
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx, q: gen.New(tx)}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op, the owning Store keeps the database open.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(context.Context) error { return nil }

// Nested transactions are not supported.
func (t *txStore) Tx(context.Context) (store.Tx, error) { return nil, sql.ErrTxDone }

func (t *txStore) WithTx(context.Context, func(tx store.Tx) error) error { return sql.ErrTxDone }

func (t *txStore) Users() store.Users     { return &usersRepo{q: t.q} }
func (t *txStore) Invites() store.Invites { return &invitesRepo{q: t.q} }
func (t *txStore) Peers() store.Peers     { return &peersRepo{q: t.q} }

// Migrations run before any transaction is opened.
func (t *txStore) ApplyMigrations() error { return nil }
