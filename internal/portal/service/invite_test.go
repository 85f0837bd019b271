package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/wgportal/internal/portal/domain"
	"github.com/aussiebroadwan/wgportal/internal/portal/store"
	"github.com/stretchr/testify/require"
)

func TestInviteCreate(t *testing.T) {
	ctx := context.Background()
	svc := &InviteService{Store: newTestStore(t), Now: fixedClock(t0)}

	t.Run("applies defaults and normalises the code", func(t *testing.T) {
		inv, err := svc.Create(ctx, CreateInviteInput{Code: "  welcome2024 "})
		require.NoError(t, err)
		require.Equal(t, "WELCOME2024", inv.Code)
		require.Equal(t, DefaultInviteMaxUses, inv.MaxUses)
		require.Equal(t, 0, inv.UsedCount)
		require.True(t, inv.IsActive)
		require.Equal(t, t0.AddDate(0, 0, DefaultInviteExpiresInDays), inv.ExpiresAt)
	})

	t.Run("duplicate code in any case conflicts", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateInviteInput{Code: "Welcome2024"})
		require.ErrorIs(t, err, ErrInviteCodeTaken)
	})

	t.Run("rejects out of range input", func(t *testing.T) {
		cases := []CreateInviteInput{
			{Code: "ab"},
			{Code: "   "},
			{Code: "OKCODE", MaxUses: -1},
			{Code: "OKCODE", MaxUses: DefaultInviteMaxUsesLimit + 1},
			{Code: "OKCODE", ExpiresInDays: 366},
			{Code: "OKCODE", ExpiresInDays: -3},
		}
		for _, in := range cases {
			_, err := svc.Create(ctx, in)
			require.ErrorIs(t, err, ErrValidation, "%+v", in)
		}
	})

	t.Run("honours a lower configured limit", func(t *testing.T) {
		limited := &InviteService{Store: svc.Store, MaxUsesLimit: 10, Now: svc.Now}
		_, err := limited.Create(ctx, CreateInviteInput{Code: "LIMITED", MaxUses: 11})
		require.ErrorIs(t, err, ErrValidation)

		inv, err := limited.Create(ctx, CreateInviteInput{Code: "LIMITED", MaxUses: 10})
		require.NoError(t, err)
		require.Equal(t, 10, inv.MaxUses)
	})
}

func TestInviteValidate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := &InviteService{Store: s, Now: fixedClock(t0)}

	inv, err := svc.Create(ctx, CreateInviteInput{Code: "SPRING", MaxUses: 2, ExpiresInDays: 1})
	require.NoError(t, err)

	_, st, err := svc.Validate(ctx, "spring")
	require.NoError(t, err)
	require.Equal(t, domain.InviteValid, st)

	_, st, err = svc.Validate(ctx, "nope")
	require.NoError(t, err)
	require.Equal(t, domain.InviteNotFound, st)

	t.Run("expiry instant counts as expired", func(t *testing.T) {
		atExpiry := &InviteService{Store: s, Now: fixedClock(inv.ExpiresAt)}
		_, st, err := atExpiry.Validate(ctx, "SPRING")
		require.NoError(t, err)
		require.Equal(t, domain.InviteExpired, st)

		justBefore := &InviteService{Store: s, Now: fixedClock(inv.ExpiresAt.Add(-time.Millisecond))}
		_, st, err = justBefore.Validate(ctx, "SPRING")
		require.NoError(t, err)
		require.Equal(t, domain.InviteValid, st)
	})

	t.Run("disabled", func(t *testing.T) {
		_, err := svc.Disable(ctx, inv.ID)
		require.NoError(t, err)
		_, st, err := svc.Validate(ctx, "SPRING")
		require.NoError(t, err)
		require.Equal(t, domain.InviteDisabled, st)
	})
}

func TestInviteConsumeInsideTx(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	h := testHasher()
	svc := &InviteService{Store: s, Now: fixedClock(t0)}

	inv, err := svc.Create(ctx, CreateInviteInput{Code: "ONCE", MaxUses: 1})
	require.NoError(t, err)
	alice := mustUser(t, s, h, "alice", "password1", false)
	bob := mustUser(t, s, h, "bob", "password1", false)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		got, err := svc.Consume(ctx, tx, "once", alice.ID)
		require.Equal(t, 1, got.UsedCount)
		return err
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		_, err := svc.Consume(ctx, tx, "ONCE", bob.ID)
		return err
	})
	require.ErrorIs(t, err, ErrInviteExhausted)

	got, usage, err := svc.Usage(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.UsedCount)
	require.Len(t, usage, 1)
	require.Equal(t, alice.ID, usage[0].UserID)
	require.Equal(t, "alice", usage[0].Username)
	require.True(t, usage[0].UserActive)
}

func TestInviteUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := &InviteService{Store: s, Now: fixedClock(t0)}
	h := testHasher()

	inv, err := svc.Create(ctx, CreateInviteInput{Code: "TEAM", MaxUses: 3, Description: "team"})
	require.NoError(t, err)

	for _, name := range []string{"ann", "ben"} {
		u := mustUser(t, s, h, name, "password1", false)
		require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
			_, err := svc.Consume(ctx, tx, "TEAM", u.ID)
			return err
		}))
	}

	t.Run("max uses below used count is rejected", func(t *testing.T) {
		one := 1
		_, err := svc.Update(ctx, inv.ID, UpdateInviteInput{MaxUses: &one})
		require.ErrorIs(t, err, ErrMaxUsesBelowUsed)
	})

	t.Run("max uses equal to used count closes the code", func(t *testing.T) {
		two := 2
		got, err := svc.Update(ctx, inv.ID, UpdateInviteInput{MaxUses: &two})
		require.NoError(t, err)
		require.True(t, got.IsFull())
	})

	t.Run("expiry must be in the future", func(t *testing.T) {
		past := t0.Add(-time.Minute)
		_, err := svc.Update(ctx, inv.ID, UpdateInviteInput{ExpiresAt: &past})
		require.ErrorIs(t, err, ErrValidation)

		now := t0
		_, err = svc.Update(ctx, inv.ID, UpdateInviteInput{ExpiresAt: &now})
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("partial update keeps other fields", func(t *testing.T) {
		later := t0.Add(72 * time.Hour)
		desc := "renamed"
		got, err := svc.Update(ctx, inv.ID, UpdateInviteInput{ExpiresAt: &later, Description: &desc})
		require.NoError(t, err)
		require.Equal(t, later, got.ExpiresAt)
		require.Equal(t, "renamed", got.Description)
		require.Equal(t, 2, got.MaxUses)
		require.Equal(t, 2, got.UsedCount)
		require.True(t, got.IsActive)
	})

	t.Run("unknown id", func(t *testing.T) {
		active := true
		_, err := svc.Update(ctx, "missing", UpdateInviteInput{IsActive: &active})
		require.ErrorIs(t, err, ErrInviteNotFound)
	})
}

func TestInviteDeleteCascadesUsage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := &InviteService{Store: s, Now: fixedClock(t0)}

	inv, err := svc.Create(ctx, CreateInviteInput{Code: "GONE", MaxUses: 5})
	require.NoError(t, err)
	u := mustUser(t, s, testHasher(), "carol", "password1", false)
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		_, err := svc.Consume(ctx, tx, "GONE", u.ID)
		return err
	}))

	require.NoError(t, svc.Delete(ctx, inv.ID))

	n, err := s.Invites().CountUsage(ctx, inv.ID)
	require.NoError(t, err)
	require.Zero(t, n)

	_, _, err = svc.Usage(ctx, inv.ID)
	require.ErrorIs(t, err, ErrInviteNotFound)
	require.ErrorIs(t, svc.Delete(ctx, inv.ID), ErrInviteNotFound)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}
