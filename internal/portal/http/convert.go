package http

import (
	"time"

	"github.com/aussiebroadwan/wgportal/internal/portal/domain"
	"github.com/aussiebroadwan/wgportal/pkg/portalsdk"
)

func toDevice(p domain.Peer) portalsdk.Device {
	return portalsdk.Device{
		ID:        p.ID,
		Name:      p.Name,
		IPAddress: p.Address.String(),
		PublicKey: p.PublicKey,
		IsActive:  p.IsActive,
		Synced:    p.SyncState == domain.SyncSynced,
		CreatedAt: p.CreatedAt,
	}
}

func toInvite(inv domain.Invite, now time.Time) portalsdk.Invite {
	return portalsdk.Invite{
		ID:            inv.ID,
		Code:          inv.Code,
		Description:   inv.Description,
		MaxUses:       inv.MaxUses,
		UsedCount:     inv.UsedCount,
		RemainingUses: inv.RemainingUses(),
		ExpiresAt:     inv.ExpiresAt,
		IsActive:      inv.IsActive,
		IsExpired:     inv.IsExpired(now),
		IsFull:        inv.IsFull(),
		CreatedAt:     inv.CreatedAt,
	}
}

func toUser(u domain.UserSummary) portalsdk.User {
	return portalsdk.User{
		ID:          u.ID,
		Username:    u.Username,
		IsActive:    u.IsActive,
		IsAdmin:     u.IsAdmin,
		DeviceCount: u.DeviceCount,
		InviteCode:  u.InviteCode,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}
