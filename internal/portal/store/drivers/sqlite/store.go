package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/wgportal/internal/portal/domain"
	"github.com/aussiebroadwan/wgportal/internal/portal/store"
	"github.com/aussiebroadwan/wgportal/internal/portal/store/drivers/sqlite/gen"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Store struct {
	db *sql.DB
	q  *gen.Queries
}

// DSN builds the connection string for a database file. Every connection
// gets WAL, a busy timeout and enforced foreign keys, and every transaction
// starts with BEGIN IMMEDIATE so writers serialise on the write lock up
// front instead of failing on lock upgrade.
func DSN(path string) string {
	v := url.Values{}
	v.Add("_pragma", "busy_timeout(5000)")
	v.Add("_pragma", "journal_mode(WAL)")
	v.Add("_pragma", "foreign_keys(1)")
	v.Set("_txlock", "immediate")
	v.Set("_time_format", "sqlite")
	return "file:" + path + "?" + v.Encode()
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// An in-memory database exists per connection.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: open %s: %w", dsn, err)
	}
	return NewStoreFromDB(db), nil
}

// NewStoreFromDB wraps an already opened handle.
func NewStoreFromDB(db *sql.DB) *Store {
	return &Store{db: db, q: gen.New(db)}
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the pool for connection stats.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	// Rollback after Commit is a harmless sql.ErrTxDone.
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Users() store.Users     { return &usersRepo{q: s.q} }
func (s *Store) Invites() store.Invites { return &invitesRepo{q: s.q} }
func (s *Store) Peers() store.Peers     { return &peersRepo{q: s.q} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapConstraint turns UNIQUE and PRIMARY KEY violations into
// store.ErrAlreadyExists.
func mapConstraint(err error) error {
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", store.ErrAlreadyExists, se.Error())
		}
	}
	return err
}

// mapRowsAffected reports ErrNotFound for a statement that matched nothing.
func mapRowsAffected(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func mapNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		t := nt.Time.UTC()
		return &t
	}
	return nil
}

func mapUser(row gen.User) domain.User {
	return domain.User{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		IsActive:     row.IsActive,
		IsAdmin:      row.IsAdmin,
		LastLoginAt:  mapNullTimePtr(row.LastLoginAt),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

func mapInvite(row gen.InvitationCode) domain.Invite {
	return domain.Invite{
		ID:          row.ID,
		Code:        row.Code,
		MaxUses:     int(row.MaxUses),
		UsedCount:   int(row.UsedCount),
		Description: mapNullString(row.Description),
		ExpiresAt:   row.ExpiresAt.UTC(),
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func mapPeer(row gen.Peer) (domain.Peer, error) {
	addr, err := netip.ParseAddr(row.IpAddress)
	if err != nil {
		return domain.Peer{}, fmt.Errorf("sqlite: peer %s has bad address %q: %w", row.ID, row.IpAddress, err)
	}
	return domain.Peer{
		ID:               row.ID,
		UserID:           row.UserID,
		Name:             row.Name,
		PublicKey:        row.PublicKey,
		PrivateKeySealed: row.PrivateKeySealed,
		Address:          addr,
		IsActive:         row.IsActive,
		SyncState:        domain.SyncState(row.SyncState),
		CreatedAt:        row.CreatedAt.UTC(),
		UpdatedAt:        row.UpdatedAt.UTC(),
	}, nil
}

func mapPeers(rows []gen.Peer) ([]domain.Peer, error) {
	out := make([]domain.Peer, 0, len(rows))
	for _, row := range rows {
		p, err := mapPeer(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
