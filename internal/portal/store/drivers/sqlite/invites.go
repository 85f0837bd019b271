package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/wgportal/internal/portal/domain"
	"github.com/aussiebroadwan/wgportal/internal/portal/store/drivers/sqlite/gen"
)

type invitesRepo struct {
	q *gen.Queries
}

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) error {
	err := r.q.CreateInvitationCode(ctx, gen.CreateInvitationCodeParams{
		ID:          inv.ID,
		Code:        inv.Code,
		MaxUses:     int64(inv.MaxUses),
		Description: mapStringNull(inv.Description),
		ExpiresAt:   inv.ExpiresAt.UTC(),
		IsActive:    inv.IsActive,
		CreatedAt:   inv.CreatedAt.UTC(),
		UpdatedAt:   inv.UpdatedAt.UTC(),
	})
	return mapConstraint(err)
}

func (r *invitesRepo) GetInviteByID(ctx context.Context, id string) (domain.Invite, error) {
	row, err := r.q.GetInvitationCodeByID(ctx, id)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	return mapInvite(row), nil
}

func (r *invitesRepo) GetInviteByCode(ctx context.Context, code string) (domain.Invite, error) {
	row, err := r.q.GetInvitationCodeByCode(ctx, code)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	return mapInvite(row), nil
}

func (r *invitesRepo) ListInvites(ctx context.Context) ([]domain.Invite, error) {
	rows, err := r.q.ListInvitationCodes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Invite, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapInvite(row))
	}
	return out, nil
}

func (r *invitesRepo) UpdateInvite(ctx context.Context, inv domain.Invite) error {
	return mapRowsAffected(r.q.UpdateInvitationCode(ctx, gen.UpdateInvitationCodeParams{
		MaxUses:     int64(inv.MaxUses),
		ExpiresAt:   inv.ExpiresAt.UTC(),
		Description: mapStringNull(inv.Description),
		IsActive:    inv.IsActive,
		UpdatedAt:   inv.UpdatedAt.UTC(),
		ID:          inv.ID,
	}))
}

func (r *invitesRepo) DeleteInvite(ctx context.Context, id string) error {
	return mapRowsAffected(r.q.DeleteInvitationCode(ctx, id))
}

func (r *invitesRepo) IncrementUse(ctx context.Context, id string, at time.Time) (bool, error) {
	n, err := r.q.IncrementInvitationUse(ctx, gen.IncrementInvitationUseParams{
		UpdatedAt: at.UTC(),
		ID:        id,
	})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *invitesRepo) CreateUsage(ctx context.Context, u domain.InviteUsage) error {
	err := r.q.CreateInvitationUsage(ctx, gen.CreateInvitationUsageParams{
		ID:               u.ID,
		InvitationCodeID: u.InviteID,
		UserID:           u.UserID,
		UsedAt:           u.UsedAt.UTC(),
	})
	return mapConstraint(err)
}

func (r *invitesRepo) ListUsage(ctx context.Context, inviteID string) ([]domain.InviteUsage, error) {
	rows, err := r.q.ListInvitationUsage(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.InviteUsage, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.InviteUsage{
			ID:         row.ID,
			InviteID:   row.InvitationCodeID,
			UserID:     row.UserID,
			Username:   row.Username,
			UserActive: row.UserIsActive,
			UsedAt:     row.UsedAt.UTC(),
		})
	}
	return out, nil
}

func (r *invitesRepo) CountUsage(ctx context.Context, inviteID string) (int, error) {
	n, err := r.q.CountInvitationUsage(ctx, inviteID)
	return int(n), err
}
