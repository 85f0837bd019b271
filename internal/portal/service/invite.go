package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/wgportal/internal/portal/domain"
	"github.com/aussiebroadwan/wgportal/internal/portal/store"
	"github.com/aussiebroadwan/wgportal/pkg/idx"
	"github.com/aussiebroadwan/wgportal/pkg/slogx"
)

const (
	DefaultInviteMaxUses       = 50
	DefaultInviteExpiresInDays = 30
	DefaultInviteMaxUsesLimit  = 1000

	minInviteCodeLength = 3
	maxInviteCodeLength = 64
	maxInviteExpiryDays = 365
)

type InviteService struct {
	Store store.Store

	// MaxUsesLimit caps max uses on create and update. Zero means
	// DefaultInviteMaxUsesLimit.
	MaxUsesLimit int

	Now func() time.Time
}

func (s *InviteService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *InviteService) maxUsesLimit() int {
	if s.MaxUsesLimit > 0 {
		return s.MaxUsesLimit
	}
	return DefaultInviteMaxUsesLimit
}

// Validate looks up code and reports whether it can be consumed right now.
// The returned error is only set for storage failures.
func (s *InviteService) Validate(ctx context.Context, code string) (domain.Invite, domain.InviteStatus, error) {
	inv, err := s.Store.Invites().GetInviteByCode(ctx, domain.NormalizeInviteCode(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invite{}, domain.InviteNotFound, nil
		}
		return domain.Invite{}, domain.InviteNotFound, err
	}
	return inv, inv.Status(s.now()), nil
}

// Consume spends one use of code for userID inside tx. The transaction
// holds the write lock from its first statement, so the row read here
// cannot change underneath us before the increment.
func (s *InviteService) Consume(ctx context.Context, tx store.Tx, code, userID string) (domain.Invite, error) {
	now := s.now()

	inv, err := tx.Invites().GetInviteByCode(ctx, domain.NormalizeInviteCode(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invite{}, ErrInviteNotFound
		}
		return domain.Invite{}, fmt.Errorf("load invite: %w", err)
	}

	if err := InviteStatusError(inv.Status(now)); err != nil {
		return domain.Invite{}, err
	}

	ok, err := tx.Invites().IncrementUse(ctx, inv.ID, now)
	if err != nil {
		return domain.Invite{}, fmt.Errorf("increment invite use: %w", err)
	}
	if !ok {
		return domain.Invite{}, ErrInviteExhausted
	}

	err = tx.Invites().CreateUsage(ctx, domain.InviteUsage{
		ID:       idx.New().String(),
		InviteID: inv.ID,
		UserID:   userID,
		UsedAt:   now,
	})
	if err != nil {
		return domain.Invite{}, fmt.Errorf("record invite usage: %w", err)
	}

	inv.UsedCount++
	inv.UpdatedAt = now
	return inv, nil
}

type CreateInviteInput struct {
	Code          string
	Description   string
	MaxUses       int // zero means DefaultInviteMaxUses
	ExpiresInDays int // zero means DefaultInviteExpiresInDays
}

func (s *InviteService) Create(ctx context.Context, in CreateInviteInput) (domain.Invite, error) {
	log := slogx.FromContext(ctx)

	code := domain.NormalizeInviteCode(in.Code)
	if len(code) < minInviteCodeLength || len(code) > maxInviteCodeLength {
		return domain.Invite{}, fmt.Errorf("%w: code must be %d to %d characters", ErrValidation, minInviteCodeLength, maxInviteCodeLength)
	}

	maxUses := in.MaxUses
	if maxUses == 0 {
		maxUses = DefaultInviteMaxUses
	}
	if err := s.checkMaxUses(maxUses); err != nil {
		return domain.Invite{}, err
	}

	days := in.ExpiresInDays
	if days == 0 {
		days = DefaultInviteExpiresInDays
	}
	if days < 1 || days > maxInviteExpiryDays {
		return domain.Invite{}, fmt.Errorf("%w: expires_in_days must be between 1 and %d", ErrValidation, maxInviteExpiryDays)
	}

	now := s.now()
	inv := domain.Invite{
		ID:          idx.New().String(),
		Code:        code,
		MaxUses:     maxUses,
		Description: in.Description,
		ExpiresAt:   now.AddDate(0, 0, days),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Store.Invites().CreateInvite(ctx, inv); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			log.Warn("invite code already exists", slog.String("code", code))
			return domain.Invite{}, ErrInviteCodeTaken
		}
		log.Error("failed to create invite", slog.Any("error", err))
		return domain.Invite{}, err
	}

	log.Info("invite created",
		slog.String("invite_id", inv.ID),
		slog.String("code", inv.Code),
		slog.Int("max_uses", inv.MaxUses),
		slog.Time("expires_at", inv.ExpiresAt),
	)
	return inv, nil
}

func (s *InviteService) checkMaxUses(n int) error {
	if n < 1 || n > s.maxUsesLimit() {
		return fmt.Errorf("%w: max uses must be between 1 and %d", ErrValidation, s.maxUsesLimit())
	}
	return nil
}

// UpdateInviteInput carries the fields to change; nil leaves a field alone.
type UpdateInviteInput struct {
	MaxUses     *int
	ExpiresAt   *time.Time
	Description *string
	IsActive    *bool
}

func (s *InviteService) Update(ctx context.Context, id string, in UpdateInviteInput) (domain.Invite, error) {
	log := slogx.FromContext(ctx)
	now := s.now()

	if in.MaxUses != nil {
		if err := s.checkMaxUses(*in.MaxUses); err != nil {
			return domain.Invite{}, err
		}
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return domain.Invite{}, fmt.Errorf("%w: expiration must be in the future", ErrValidation)
	}

	var inv domain.Invite
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		inv, err = tx.Invites().GetInviteByID(ctx, id)
		if err != nil {
			return err
		}

		if in.MaxUses != nil {
			if *in.MaxUses < inv.UsedCount {
				return ErrMaxUsesBelowUsed
			}
			inv.MaxUses = *in.MaxUses
		}
		if in.ExpiresAt != nil {
			inv.ExpiresAt = in.ExpiresAt.UTC()
		}
		if in.Description != nil {
			inv.Description = *in.Description
		}
		if in.IsActive != nil {
			inv.IsActive = *in.IsActive
		}
		inv.UpdatedAt = now

		return tx.Invites().UpdateInvite(ctx, inv)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invite{}, ErrInviteNotFound
		}
		if !errors.Is(err, ErrMaxUsesBelowUsed) {
			log.Error("failed to update invite", slog.String("invite_id", id), slog.Any("error", err))
		}
		return domain.Invite{}, err
	}

	log.Info("invite updated",
		slog.String("invite_id", inv.ID),
		slog.Int("max_uses", inv.MaxUses),
		slog.Bool("is_active", inv.IsActive),
		slog.Time("expires_at", inv.ExpiresAt),
	)
	return inv, nil
}

// Disable is Update with only IsActive=false.
func (s *InviteService) Disable(ctx context.Context, id string) (domain.Invite, error) {
	inactive := false
	return s.Update(ctx, id, UpdateInviteInput{IsActive: &inactive})
}

// Delete removes the invite together with its usage history.
func (s *InviteService) Delete(ctx context.Context, id string) error {
	if err := s.Store.Invites().DeleteInvite(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInviteNotFound
		}
		return err
	}
	slogx.FromContext(ctx).Info("invite deleted", slog.String("invite_id", id))
	return nil
}

func (s *InviteService) List(ctx context.Context) ([]domain.Invite, error) {
	return s.Store.Invites().ListInvites(ctx)
}

// Usage returns an invite with the users who registered through it.
func (s *InviteService) Usage(ctx context.Context, id string) (domain.Invite, []domain.InviteUsage, error) {
	inv, err := s.Store.Invites().GetInviteByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invite{}, nil, ErrInviteNotFound
		}
		return domain.Invite{}, nil, err
	}
	usage, err := s.Store.Invites().ListUsage(ctx, id)
	if err != nil {
		return domain.Invite{}, nil, err
	}
	return inv, usage, nil
}

// Clock is the ledger's notion of now, used by callers that render
// IsExpired for an invite listing.
func (s *InviteService) Clock() time.Time { return s.now() }
