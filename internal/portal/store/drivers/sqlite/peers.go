package sqlite

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/aussiebroadwan/wgportal/internal/portal/domain"
	"github.com/aussiebroadwan/wgportal/internal/portal/store"
	"github.com/aussiebroadwan/wgportal/internal/portal/store/drivers/sqlite/gen"
)

type peersRepo struct {
	q *gen.Queries
}

func (r *peersRepo) CreatePeer(ctx context.Context, p domain.Peer) error {
	err := r.q.CreatePeer(ctx, gen.CreatePeerParams{
		ID:               p.ID,
		UserID:           p.UserID,
		Name:             p.Name,
		PublicKey:        p.PublicKey,
		PrivateKeySealed: p.PrivateKeySealed,
		IpAddress:        p.Address.String(),
		IsActive:         p.IsActive,
		SyncState:        string(p.SyncState),
		CreatedAt:        p.CreatedAt.UTC(),
		UpdatedAt:        p.UpdatedAt.UTC(),
	})
	err = mapConstraint(err)
	if errors.Is(err, store.ErrAlreadyExists) && strings.Contains(err.Error(), "peers.ip_address") {
		return store.ErrAddressInUse
	}
	return err
}

func (r *peersRepo) GetPeer(ctx context.Context, id, userID string) (domain.Peer, error) {
	row, err := r.q.GetPeerForUser(ctx, gen.GetPeerForUserParams{ID: id, UserID: userID})
	if err != nil {
		return domain.Peer{}, mapNotFound(err)
	}
	return mapPeer(row)
}

func (r *peersRepo) ListPeersByUser(ctx context.Context, userID string) ([]domain.Peer, error) {
	rows, err := r.q.ListPeersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return mapPeers(rows)
}

func (r *peersRepo) CountPeersByUser(ctx context.Context, userID string) (int, error) {
	n, err := r.q.CountPeersByUser(ctx, userID)
	return int(n), err
}

func (r *peersRepo) ListAddresses(ctx context.Context) ([]netip.Addr, error) {
	rows, err := r.q.ListPeerAddresses(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]netip.Addr, 0, len(rows))
	for _, s := range rows {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("sqlite: stored peer address %q: %w", s, err)
		}
		out = append(out, addr)
	}
	return out, nil
}

func (r *peersRepo) DeletePeer(ctx context.Context, id, userID string) error {
	return mapRowsAffected(r.q.DeletePeerForUser(ctx, gen.DeletePeerForUserParams{ID: id, UserID: userID}))
}

func (r *peersRepo) DeactivatePeersForUser(ctx context.Context, userID string, at time.Time) error {
	return r.q.DeactivatePeersForUser(ctx, gen.DeactivatePeersForUserParams{
		UpdatedAt: at.UTC(),
		UserID:    userID,
	})
}

func (r *peersRepo) MarkPeerSynced(ctx context.Context, id string, at time.Time) error {
	return mapRowsAffected(r.q.MarkPeerSynced(ctx, gen.MarkPeerSyncedParams{UpdatedAt: at.UTC(), ID: id}))
}

func (r *peersRepo) ListPendingPeers(ctx context.Context) ([]domain.Peer, error) {
	rows, err := r.q.ListPendingPeers(ctx)
	if err != nil {
		return nil, err
	}
	return mapPeers(rows)
}
