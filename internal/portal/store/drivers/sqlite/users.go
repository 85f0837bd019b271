package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/wgportal/internal/portal/domain"
	"github.com/aussiebroadwan/wgportal/internal/portal/store/drivers/sqlite/gen"
)

type usersRepo struct {
	q *gen.Queries
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row, err := r.q.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row, err := r.q.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	err := r.q.CreateUser(ctx, gen.CreateUserParams{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	})
	return mapConstraint(err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error {
	return mapRowsAffected(r.q.UpdateUserPasswordHash(ctx, gen.UpdateUserPasswordHashParams{
		PasswordHash: hash,
		UpdatedAt:    at.UTC(),
		ID:           userID,
	}))
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return mapRowsAffected(r.q.UpdateUserLastLogin(ctx, gen.UpdateUserLastLoginParams{
		LastLoginAt: sql.NullTime{Time: at.UTC(), Valid: true},
		ID:          userID,
	}))
}

func (r *usersRepo) UpdateFlags(ctx context.Context, userID string, isActive, isAdmin bool, at time.Time) error {
	return mapRowsAffected(r.q.UpdateUserFlags(ctx, gen.UpdateUserFlagsParams{
		IsActive:  isActive,
		IsAdmin:   isAdmin,
		UpdatedAt: at.UTC(),
		ID:        userID,
	}))
}

func (r *usersRepo) ListUserSummaries(ctx context.Context) ([]domain.UserSummary, error) {
	rows, err := r.q.ListUserSummaries(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.UserSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.UserSummary{
			User: mapUser(gen.User{
				ID:           row.ID,
				Username:     row.Username,
				PasswordHash: row.PasswordHash,
				IsActive:     row.IsActive,
				IsAdmin:      row.IsAdmin,
				LastLoginAt:  row.LastLoginAt,
				CreatedAt:    row.CreatedAt,
				UpdatedAt:    row.UpdatedAt,
			}),
			DeviceCount: int(row.DeviceCount),
			InviteCode:  mapNullString(row.InviteCode),
		})
	}
	return out, nil
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	count, err := r.q.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
