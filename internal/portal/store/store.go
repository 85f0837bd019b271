package store

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/aussiebroadwan/wgportal/internal/portal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrAddressInUse is the ErrAlreadyExists raised by a taken peer address.
	ErrAddressInUse = fmt.Errorf("%w: address in use", ErrAlreadyExists)
)

// Store is the root data access interface. Sub-repositories are reached
// through methods so a transaction can hand out the same repos bound to the
// open tx, and nothing can start a transaction inside a transaction.
type Store interface {
	Users() Users
	Invites() Invites
	Peers() Peers

	ApplyMigrations() error

	// Tx starts a write transaction. The caller MUST Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn inside a write transaction, committing when fn returns
	// nil and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transaction scoped Store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername matches case-insensitively.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts u. A taken username is ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// UpdateFlags overwrites is_active and is_admin.
	UpdateFlags(ctx context.Context, userID string, isActive, isAdmin bool, at time.Time) error

	// ListUserSummaries returns every user with device count and the invite
	// code used to register, newest first.
	ListUserSummaries(ctx context.Context) ([]domain.UserSummary, error)

	IsEmpty(ctx context.Context) (bool, error)
}

type Invites interface {
	// CreateInvite inserts inv. A duplicate code is ErrAlreadyExists.
	CreateInvite(ctx context.Context, inv domain.Invite) error

	GetInviteByID(ctx context.Context, id string) (domain.Invite, error)

	// GetInviteByCode expects an already normalised code.
	GetInviteByCode(ctx context.Context, code string) (domain.Invite, error)

	ListInvites(ctx context.Context) ([]domain.Invite, error)

	// UpdateInvite writes the mutable fields: max uses, expiry, description
	// and the active flag. UsedCount is never written here.
	UpdateInvite(ctx context.Context, inv domain.Invite) error

	// DeleteInvite removes the invite and its usage rows.
	DeleteInvite(ctx context.Context, id string) error

	// IncrementUse adds one to used_count unless the invite is already full.
	// It reports false when no row was updated.
	IncrementUse(ctx context.Context, id string, at time.Time) (bool, error)

	CreateUsage(ctx context.Context, u domain.InviteUsage) error
	ListUsage(ctx context.Context, inviteID string) ([]domain.InviteUsage, error)
	CountUsage(ctx context.Context, inviteID string) (int, error)
}

type Peers interface {
	// CreatePeer inserts p. A duplicate public key is ErrAlreadyExists, a
	// duplicate address ErrAddressInUse.
	CreatePeer(ctx context.Context, p domain.Peer) error

	// GetPeer is scoped to the owner; another user's peer is ErrNotFound.
	GetPeer(ctx context.Context, id, userID string) (domain.Peer, error)

	ListPeersByUser(ctx context.Context, userID string) ([]domain.Peer, error)
	CountPeersByUser(ctx context.Context, userID string) (int, error)

	// ListAddresses returns the address of every peer of every user.
	ListAddresses(ctx context.Context) ([]netip.Addr, error)

	// DeletePeer is scoped to the owner; another user's peer is ErrNotFound.
	DeletePeer(ctx context.Context, id, userID string) error

	DeactivatePeersForUser(ctx context.Context, userID string, at time.Time) error

	// MarkPeerSynced only touches active peers. A deleted or deactivated
	// peer is ErrNotFound.
	MarkPeerSynced(ctx context.Context, id string, at time.Time) error

	// ListPendingPeers returns active peers whose attach was never confirmed.
	ListPendingPeers(ctx context.Context) ([]domain.Peer, error)
}
