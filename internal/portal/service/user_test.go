package service

import (
	"context"
	"crypto/ed25519"
	"errors"
	"net/netip"
	"testing"

	"github.com/aussiebroadwan/wgportal/internal/portal/domain"
	"github.com/aussiebroadwan/wgportal/pkg/cryptox"
	"github.com/aussiebroadwan/wgportal/pkg/idx"
	"github.com/aussiebroadwan/wgportal/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://portal.test"

func newUserService(t *testing.T) *UserService {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	key, err := cryptox.Ed25519FromSeed(seed)
	require.NoError(t, err)
	signer, err := jwtx.NewSigner(key)
	require.NoError(t, err)

	return &UserService{
		Store:  newTestStore(t),
		Hasher: testHasher(),
		Signer: signer,
		Issuer: testIssuer,
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)
	verifier := jwtx.NewVerifier(testIssuer, svc.Signer.PublicKey())

	alice := mustUser(t, svc.Store, svc.Hasher, "alice", "password123", false)
	root := mustUser(t, svc.Store, svc.Hasher, "root", "password123", true)

	t.Run("issues a token and records the login", func(t *testing.T) {
		tok, err := svc.Authenticate(ctx, "ALICE", "password123")
		require.NoError(t, err)
		require.Equal(t, jwtx.DefaultAccessTokenTTL, tok.ExpiresIn)

		claims, err := verifier.Verify(tok.Token)
		require.NoError(t, err)
		require.Equal(t, alice.ID, claims.Subject)
		require.Equal(t, "alice", claims.Username)
		require.Equal(t, []string{ScopeDevicesWrite}, claims.Scopes)

		u, err := svc.GetUser(ctx, alice.ID)
		require.NoError(t, err)
		require.NotNil(t, u.LastLoginAt)
	})

	t.Run("admins get admin scopes", func(t *testing.T) {
		tok, err := svc.Authenticate(ctx, "root", "password123")
		require.NoError(t, err)
		claims, err := verifier.Verify(tok.Token)
		require.NoError(t, err)
		require.Equal(t, root.ID, claims.Subject)
		require.True(t, claims.HasScope(ScopeAdminWrite))
		require.True(t, claims.HasScope(ScopeAdminRead))
	})

	t.Run("bad credentials look the same", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "alice", "wrong-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = svc.Authenticate(ctx, "nobody", "password123")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = svc.Authenticate(ctx, "", "")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("inactive users cannot log in", func(t *testing.T) {
		inactive := false
		_, err := svc.UpdateUser(ctx, root.ID, alice.ID, UpdateUserInput{IsActive: &inactive})
		require.NoError(t, err)
		_, err = svc.Authenticate(ctx, "alice", "password123")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)
	u := mustUser(t, svc.Store, svc.Hasher, "bob", "old-password", false)

	require.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "not-it", "new-password"), ErrInvalidCredentials)
	require.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "old-password", "short"), ErrPasswordTooShort)
	require.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "", "new-password"), ErrValidation)
	require.ErrorIs(t, svc.ChangePassword(ctx, "missing", "old-password", "new-password"), ErrUserNotFound)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "old-password", "new-password"))

	_, err := svc.Authenticate(ctx, "bob", "old-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "bob", "new-password")
	require.NoError(t, err)
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)
	sync := newFakeSync()
	svc.Sync = sync

	admin := mustUser(t, svc.Store, svc.Hasher, "admin", "password123", true)
	carol := mustUser(t, svc.Store, svc.Hasher, "carol", "password123", false)

	peers := []domain.Peer{
		{ID: idx.New().String(), UserID: carol.ID, Name: "phone", PublicKey: "pk-phone", PrivateKeySealed: "x",
			Address: netip.MustParseAddr("10.0.0.2"), IsActive: true, SyncState: domain.SyncSynced, CreatedAt: t0, UpdatedAt: t0},
		{ID: idx.New().String(), UserID: carol.ID, Name: "laptop", PublicKey: "pk-laptop", PrivateKeySealed: "x",
			Address: netip.MustParseAddr("10.0.0.3"), IsActive: true, SyncState: domain.SyncSynced, CreatedAt: t0, UpdatedAt: t0},
	}
	for _, p := range peers {
		require.NoError(t, svc.Store.Peers().CreatePeer(ctx, p))
	}

	t.Run("admins cannot change themselves", func(t *testing.T) {
		no := false
		_, err := svc.UpdateUser(ctx, admin.ID, admin.ID, UpdateUserInput{IsAdmin: &no})
		require.ErrorIs(t, err, ErrSelfModification)
	})

	t.Run("unknown target", func(t *testing.T) {
		yes := true
		_, err := svc.UpdateUser(ctx, admin.ID, "missing", UpdateUserInput{IsAdmin: &yes})
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("promote keeps active flag", func(t *testing.T) {
		yes := true
		got, err := svc.UpdateUser(ctx, admin.ID, carol.ID, UpdateUserInput{IsAdmin: &yes})
		require.NoError(t, err)
		require.True(t, got.IsAdmin)
		require.True(t, got.IsActive)
	})

	t.Run("deactivation cascades to devices", func(t *testing.T) {
		sync.detachErr = errors.New("interface down")
		no := false
		got, err := svc.UpdateUser(ctx, admin.ID, carol.ID, UpdateUserInput{IsActive: &no})
		require.NoError(t, err)
		require.False(t, got.IsActive)

		list, err := svc.Store.Peers().ListPeersByUser(ctx, carol.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		for _, p := range list {
			require.False(t, p.IsActive)
		}
		require.ElementsMatch(t, []string{"pk-phone", "pk-laptop"}, sync.detached)
	})

	t.Run("listing shows device counts", func(t *testing.T) {
		users, err := svc.ListUsers(ctx)
		require.NoError(t, err)
		counts := map[string]int{}
		for _, u := range users {
			counts[u.Username] = u.DeviceCount
		}
		require.Equal(t, map[string]int{"admin": 0, "carol": 2}, counts)
	})
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	created, generated, err := svc.Bootstrap(ctx, "admin", "")
	require.NoError(t, err)
	require.True(t, created)
	require.Len(t, generated, 20)

	tok, err := svc.Authenticate(ctx, "admin", generated)
	require.NoError(t, err)
	require.True(t, tok.User.IsAdmin)

	created, generated, err = svc.Bootstrap(ctx, "admin", "")
	require.NoError(t, err)
	require.False(t, created)
	require.Empty(t, generated)
}

func TestBootstrapWithConfiguredPassword(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	_, _, err := svc.Bootstrap(ctx, "x", "whatever1")
	require.ErrorIs(t, err, ErrInvalidUsername)

	created, generated, err := svc.Bootstrap(ctx, "root", "configured-secret")
	require.NoError(t, err)
	require.True(t, created)
	require.Empty(t, generated)

	_, err = svc.Authenticate(ctx, "root", "configured-secret")
	require.NoError(t, err)
}
