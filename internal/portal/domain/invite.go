package domain

import (
	"strings"
	"time"
)

// Invite is a multi-use registration code. UsedCount only ever grows, one
// step per successful registration.
type Invite struct {
	ID          string
	Code        string // trimmed, upper case
	MaxUses     int
	UsedCount   int
	Description string
	ExpiresAt   time.Time
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InviteStatus is the outcome of checking whether a code can be consumed.
type InviteStatus int

const (
	InviteValid InviteStatus = iota
	InviteNotFound
	InviteDisabled
	InviteExpired
	InviteExhausted
)

func (s InviteStatus) String() string {
	switch s {
	case InviteValid:
		return "valid"
	case InviteNotFound:
		return "not_found"
	case InviteDisabled:
		return "disabled"
	case InviteExpired:
		return "expired"
	case InviteExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// NormalizeInviteCode is applied on every write and lookup so that codes
// match case-insensitively.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsExpired reports whether now is at or past ExpiresAt.
func (i Invite) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

func (i Invite) IsFull() bool { return i.UsedCount >= i.MaxUses }

func (i Invite) RemainingUses() int { return max(i.MaxUses-i.UsedCount, 0) }

// Status checks the consumability predicates in a fixed order: disabled,
// expired, exhausted.
func (i Invite) Status(now time.Time) InviteStatus {
	switch {
	case !i.IsActive:
		return InviteDisabled
	case i.IsExpired(now):
		return InviteExpired
	case i.IsFull():
		return InviteExhausted
	default:
		return InviteValid
	}
}

// InviteUsage records one consumption of an invite.
type InviteUsage struct {
	ID         string
	InviteID   string
	UserID     string
	Username   string
	UserActive bool
	UsedAt     time.Time
}
