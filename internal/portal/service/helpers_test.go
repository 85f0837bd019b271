package service

import (
	"context"
	"net/netip"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/wgportal/internal/portal/domain"
	"github.com/aussiebroadwan/wgportal/internal/portal/store"
	"github.com/aussiebroadwan/wgportal/internal/portal/store/drivers/sqlite"
	"github.com/aussiebroadwan/wgportal/pkg/cryptox"
	"github.com/aussiebroadwan/wgportal/pkg/idx"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

// newTestStore opens a file backed database so that concurrent connections
// share it, as they do in production.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "portal.db")))
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testHasher() *cryptox.Hasher {
	return cryptox.NewHasher([]byte("test-pepper"))
}

func testSealer(t *testing.T) *cryptox.Sealer {
	t.Helper()
	s, err := cryptox.NewSealer([]byte("test-master-key"))
	require.NoError(t, err)
	return s
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func mustUser(t *testing.T, s store.Store, h *cryptox.Hasher, username, password string, admin bool) domain.User {
	t.Helper()
	hash, err := h.Hash(password)
	require.NoError(t, err)
	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      admin,
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

// fakeSync records interface calls and fails on demand.
type fakeSync struct {
	mu        sync.Mutex
	attachErr error
	detachErr error
	attached  map[string]netip.Addr
	detached  []string

	// beforeAttach runs outside the lock, so it may call back into Detach.
	beforeAttach func(pub string)
}

func newFakeSync() *fakeSync {
	return &fakeSync{attached: map[string]netip.Addr{}}
}

func (f *fakeSync) Attach(_ context.Context, pub string, addr netip.Addr) error {
	f.mu.Lock()
	hook := f.beforeAttach
	f.mu.Unlock()
	if hook != nil {
		hook(pub)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return f.attachErr
	}
	f.attached[pub] = addr
	return nil
}

func (f *fakeSync) Detach(_ context.Context, pub string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached = append(f.detached, pub)
	if f.detachErr != nil {
		return f.detachErr
	}
	delete(f.attached, pub)
	return nil
}

func (f *fakeSync) setAttachErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attachErr = err
}

func (f *fakeSync) isAttached(pub string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.attached[pub]
	return ok
}

func (f *fakeSync) onAttach(hook func(pub string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beforeAttach = hook
}
