package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/wgportal/internal/portal/domain"
	"github.com/aussiebroadwan/wgportal/internal/portal/store"
	"github.com/aussiebroadwan/wgportal/internal/portal/telemetry"
	"github.com/aussiebroadwan/wgportal/internal/portal/wireguard"
)

// SyncReconciler periodically re-attaches active peers whose attach was
// never confirmed, then marks them synced.
type SyncReconciler struct {
	Store    store.Store
	Sync     wireguard.PeerSyncPort
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSyncReconciler creates a reconciler. If interval is 0 or negative,
// defaults to 1 minute.
func NewSyncReconciler(store store.Store, sync wireguard.PeerSyncPort, logger *slog.Logger, interval time.Duration) *SyncReconciler {
	if interval <= 0 {
		interval = time.Minute
	}

	return &SyncReconciler{
		Store:    store,
		Sync:     sync,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (r *SyncReconciler) Start() {
	go r.run()
	r.Logger.Info("sync reconciler started", "interval", r.Interval)
}

// Stop blocks until an in-progress run has finished.
func (r *SyncReconciler) Stop() {
	close(r.stopCh)
	<-r.doneCh
	r.Logger.Info("sync reconciler stopped")
}

func (r *SyncReconciler) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	// Run immediately on startup
	r.Reconcile(context.Background())

	for {
		select {
		case <-ticker.C:
			r.Reconcile(context.Background())
		case <-r.stopCh:
			return
		}
	}
}

func (r *SyncReconciler) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// Reconcile performs one pass and returns how many peers were attached.
// Each peer is independent: a failure is logged and the next one is tried.
func (r *SyncReconciler) Reconcile(ctx context.Context) int {
	pending, err := r.Store.Peers().ListPendingPeers(ctx)
	if err != nil {
		r.Logger.Error("failed to list pending peers", "error", err)
		return 0
	}
	telemetry.PendingPeers.Set(float64(len(pending)))
	if len(pending) == 0 {
		return 0
	}

	attached := 0
	for _, p := range pending {
		// The list goes stale while earlier peers are attached; a device may
		// have been deleted, deactivated or attached by its own request since.
		cur, err := r.Store.Peers().GetPeer(ctx, p.ID, p.UserID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				r.Logger.Error("failed to reload pending peer", "device_id", p.ID, "error", err)
			}
			continue
		}
		if !cur.IsActive || cur.SyncState != domain.SyncPending {
			continue
		}

		if err := r.Sync.Attach(ctx, p.PublicKey, p.Address); err != nil {
			telemetry.SyncFailuresTotal.WithLabelValues("attach").Inc()
			r.Logger.Error("reconcile attach failed",
				"device_id", p.ID,
				"public_key", p.PublicKey,
				"ip_address", p.Address.String(),
				"error", err,
			)
			continue
		}
		if err := r.Store.Peers().MarkPeerSynced(ctx, p.ID, r.now()); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				detachStale(ctx, r.Sync, r.Logger, cur)
				continue
			}
			r.Logger.Error("failed to mark peer synced", "device_id", p.ID, "error", err)
			continue
		}
		attached++
	}

	telemetry.PendingPeers.Set(float64(len(pending) - attached))
	r.Logger.Info("reconcile completed", "pending", len(pending), "attached", attached)
	return attached
}
