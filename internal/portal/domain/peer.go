package domain

import (
	"net/netip"
	"time"
)

// SyncState tracks whether the running WireGuard interface is known to carry
// the peer.
type SyncState string

const (
	SyncSynced  SyncState = "synced"
	SyncPending SyncState = "pending"
)

// Peer is one client device. Public key and address are unique across all
// users.
type Peer struct {
	ID               string
	UserID           string
	Name             string
	PublicKey        string
	PrivateKeySealed string // encrypted with the peer master key
	Address          netip.Addr
	IsActive         bool
	SyncState        SyncState
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
