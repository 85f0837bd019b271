package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/wgportal/internal/portal/domain"
	"github.com/aussiebroadwan/wgportal/internal/portal/store"
	"github.com/aussiebroadwan/wgportal/internal/portal/telemetry"
	"github.com/aussiebroadwan/wgportal/internal/portal/wireguard"
	"github.com/aussiebroadwan/wgportal/pkg/cryptox"
	"github.com/aussiebroadwan/wgportal/pkg/idx"
	"github.com/aussiebroadwan/wgportal/pkg/slogx"
	"github.com/avast/retry-go/v4"
)

const maxDeviceNameLength = 64

// ServerSettings describe the gateway as seen by clients.
type ServerSettings struct {
	PublicKey    string
	EndpointHost string
	EndpointPort int
	DNS          []netip.Addr
	Keepalive    int
}

// ProvisioningService adds and removes devices, keeping the peer table and
// the running interface in step.
type ProvisioningService struct {
	Store  store.Store
	Keys   wireguard.KeyPairPort
	Sync   wireguard.PeerSyncPort
	Sealer *cryptox.Sealer
	Subnet netip.Prefix
	Server ServerSettings

	// MaxDevicesPerUser caps the devices one user may own. Zero is no limit.
	MaxDevicesPerUser int

	Now func() time.Time
}

func (s *ProvisioningService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// DeviceConfig is a rendered client configuration ready for download.
type DeviceConfig struct {
	FileName string
	Content  string
}

// AddDevice creates a device for userID:
//
//  1. validate the name and the owner
//  2. generate a key pair
//  3. allocate an address and insert the peer as pending, in one transaction
//  4. attach the peer to the interface and mark it synced
//
// If the attach fails the row is removed again and ErrExternalSync is
// returned. If that removal fails too the peer stays pending for the
// reconciler.
func (s *ProvisioningService) AddDevice(ctx context.Context, userID, name string) (domain.Peer, error) {
	peer, err := s.addDevice(ctx, userID, name)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	telemetry.ProvisioningTotal.WithLabelValues("add", outcome).Inc()
	return peer, err
}

func (s *ProvisioningService) addDevice(ctx context.Context, userID, name string) (domain.Peer, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxDeviceNameLength {
		return domain.Peer{}, fmt.Errorf("%w: %w: name must be 1 to %d characters", ErrValidation, ErrInvalidDeviceName, maxDeviceNameLength)
	}

	owner, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Peer{}, ErrUserInactive
		}
		return domain.Peer{}, err
	}
	if !owner.IsActive {
		log.Warn("inactive user attempted to add device", slog.String("user_id", userID))
		return domain.Peer{}, ErrUserInactive
	}

	// 2. Keys
	kp, err := s.Keys.Generate(ctx)
	if err != nil {
		log.Error("key generation failed", slog.Any("error", err))
		if !errors.Is(err, wireguard.ErrKeyGeneration) {
			err = fmt.Errorf("%w: %w", wireguard.ErrKeyGeneration, err)
		}
		return domain.Peer{}, err
	}
	sealed, err := s.Sealer.Seal(kp.PrivateKey)
	if err != nil {
		return domain.Peer{}, fmt.Errorf("seal private key: %w", err)
	}

	now := s.now()
	peer := domain.Peer{
		ID:               idx.New().String(),
		UserID:           userID,
		Name:             name,
		PublicKey:        kp.PublicKey,
		PrivateKeySealed: sealed,
		IsActive:         true,
		SyncState:        domain.SyncPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	// 3. Allocate and insert. Another writer may take the chosen address
	// between snapshots; one retry against a fresh snapshot settles it.
	err = retry.Do(
		func() error {
			return s.Store.WithTx(ctx, func(tx store.Tx) error {
				if s.MaxDevicesPerUser > 0 {
					n, err := tx.Peers().CountPeersByUser(ctx, userID)
					if err != nil {
						return err
					}
					if n >= s.MaxDevicesPerUser {
						return ErrDeviceLimit
					}
				}

				taken, err := tx.Peers().ListAddresses(ctx)
				if err != nil {
					return err
				}
				addr, err := wireguard.NextAddress(taken, s.Subnet)
				if err != nil {
					return err
				}
				peer.Address = addr
				if err := tx.Peers().CreatePeer(ctx, peer); err != nil {
					if errors.Is(err, store.ErrAddressInUse) {
						log.Warn("address conflict on insert", slog.String("ip_address", addr.String()))
					}
					return err
				}
				return nil
			})
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(0),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, store.ErrAddressInUse) }),
	)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAddressInUse):
			log.Error("address conflict after retry", slog.String("ip_address", peer.Address.String()))
			return domain.Peer{}, ErrAddressConflict
		case errors.Is(err, store.ErrAlreadyExists):
			log.Error("public key already registered",
				slog.String("public_key", peer.PublicKey),
				slog.Any("error", err),
			)
			return domain.Peer{}, ErrDeviceConflict
		case errors.Is(err, ErrDeviceLimit):
			log.Warn("device limit reached", slog.String("user_id", userID), slog.Int("limit", s.MaxDevicesPerUser))
			return domain.Peer{}, err
		case errors.Is(err, wireguard.ErrPoolExhausted):
			log.Error("address pool exhausted", slog.String("subnet", s.Subnet.String()))
			return domain.Peer{}, err
		default:
			log.Error("failed to store device", slog.Any("error", err))
			return domain.Peer{}, err
		}
	}

	// 4. Attach
	if err := s.Sync.Attach(ctx, peer.PublicKey, peer.Address); err != nil {
		telemetry.SyncFailuresTotal.WithLabelValues("attach").Inc()
		log.Error("failed to attach peer",
			slog.String("device_id", peer.ID),
			slog.String("public_key", peer.PublicKey),
			slog.String("ip_address", peer.Address.String()),
			slog.Any("error", err),
		)

		// A fresh context: the request's may be the reason attach failed.
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if derr := s.Store.Peers().DeletePeer(cctx, peer.ID, userID); derr != nil {
			log.Error("failed to remove unattached device, left pending for reconciliation",
				slog.String("device_id", peer.ID),
				slog.String("public_key", peer.PublicKey),
				slog.String("ip_address", peer.Address.String()),
				slog.Any("error", derr),
			)
		}

		if !errors.Is(err, wireguard.ErrExternalSync) {
			err = fmt.Errorf("%w: %w", wireguard.ErrExternalSync, err)
		}
		return domain.Peer{}, err
	}

	if err := s.Store.Peers().MarkPeerSynced(ctx, peer.ID, s.now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Deleted or deactivated while attaching.
			detachStale(ctx, s.Sync, log, peer)
			return domain.Peer{}, ErrDeviceNotFound
		}
		// The peer works; the reconciler will attach it again and mark it.
		log.Warn("failed to mark device synced", slog.String("device_id", peer.ID), slog.Any("error", err))
	} else {
		peer.SyncState = domain.SyncSynced
	}

	log.Info("device added",
		slog.String("device_id", peer.ID),
		slog.String("user_id", userID),
		slog.String("name", peer.Name),
		slog.String("ip_address", peer.Address.String()),
		slog.Bool("degraded_keys", kp.Degraded),
	)
	return peer, nil
}

// RemoveDevice deletes the row and detaches the peer. A failed detach is
// logged and reported through daemonSynced but never undoes the delete.
func (s *ProvisioningService) RemoveDevice(ctx context.Context, deviceID, userID string) (daemonSynced bool, err error) {
	daemonSynced, err = s.removeDevice(ctx, deviceID, userID)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	telemetry.ProvisioningTotal.WithLabelValues("remove", outcome).Inc()
	return daemonSynced, err
}

func (s *ProvisioningService) removeDevice(ctx context.Context, deviceID, userID string) (bool, error) {
	log := slogx.FromContext(ctx)

	peer, err := s.Store.Peers().GetPeer(ctx, deviceID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrDeviceNotFound
		}
		return false, err
	}

	// The row goes first. An attach racing with this removal then fails to
	// mark the peer synced and undoes itself.
	if err := s.Store.Peers().DeletePeer(ctx, peer.ID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrDeviceNotFound
		}
		log.Error("failed to delete device", slog.String("device_id", peer.ID), slog.Any("error", err))
		return false, err
	}

	daemonSynced := true
	if err := s.Sync.Detach(ctx, peer.PublicKey); err != nil {
		daemonSynced = false
		telemetry.SyncFailuresTotal.WithLabelValues("detach").Inc()
		log.Error("failed to detach peer of deleted device",
			slog.String("device_id", peer.ID),
			slog.String("public_key", peer.PublicKey),
			slog.String("ip_address", peer.Address.String()),
			slog.Any("error", err),
		)
	}

	log.Info("device removed",
		slog.String("device_id", peer.ID),
		slog.String("user_id", userID),
		slog.Bool("daemon_synced", daemonSynced),
	)
	return daemonSynced, nil
}

func (s *ProvisioningService) ListDevices(ctx context.Context, userID string) ([]domain.Peer, error) {
	return s.Store.Peers().ListPeersByUser(ctx, userID)
}

func (s *ProvisioningService) GetDevice(ctx context.Context, deviceID, userID string) (domain.Peer, error) {
	p, err := s.Store.Peers().GetPeer(ctx, deviceID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Peer{}, ErrDeviceNotFound
	}
	return p, err
}

// DeviceConfig renders the client configuration of an active device.
func (s *ProvisioningService) DeviceConfig(ctx context.Context, deviceID, userID string) (DeviceConfig, error) {
	peer, err := s.GetDevice(ctx, deviceID, userID)
	if err != nil {
		return DeviceConfig{}, err
	}
	if !peer.IsActive {
		return DeviceConfig{}, ErrDeviceNotFound
	}

	priv, err := s.Sealer.Open(peer.PrivateKeySealed)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to open device private key",
			slog.String("device_id", peer.ID),
			slog.Any("error", err),
		)
		return DeviceConfig{}, fmt.Errorf("open private key: %w", err)
	}

	content := wireguard.Render(wireguard.ClientConfig{
		PrivateKey:      priv,
		Address:         peer.Address,
		ServerPublicKey: s.Server.PublicKey,
		EndpointHost:    s.Server.EndpointHost,
		EndpointPort:    s.Server.EndpointPort,
		DNS:             s.Server.DNS,
		Keepalive:       s.Server.Keepalive,
	})
	return DeviceConfig{FileName: wireguard.ConfigFileName(peer.Name), Content: content}, nil
}

// detachStale takes a peer back off the interface after its row was deleted
// or deactivated while the attach was in flight.
func detachStale(ctx context.Context, sync wireguard.PeerSyncPort, log *slog.Logger, p domain.Peer) {
	attrs := []any{
		slog.String("device_id", p.ID),
		slog.String("public_key", p.PublicKey),
		slog.String("ip_address", p.Address.String()),
	}
	if err := sync.Detach(ctx, p.PublicKey); err != nil {
		telemetry.SyncFailuresTotal.WithLabelValues("detach").Inc()
		log.Error("failed to detach peer removed during attach", append(attrs, slog.Any("error", err))...)
		return
	}
	log.Warn("peer removed during attach, detached again", attrs...)
}
