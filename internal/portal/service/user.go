package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/wgportal/internal/portal/domain"
	"github.com/aussiebroadwan/wgportal/internal/portal/store"
	"github.com/aussiebroadwan/wgportal/internal/portal/telemetry"
	"github.com/aussiebroadwan/wgportal/internal/portal/wireguard"
	"github.com/aussiebroadwan/wgportal/pkg/cryptox"
	"github.com/aussiebroadwan/wgportal/pkg/idx"
	"github.com/aussiebroadwan/wgportal/pkg/jwtx"
	"github.com/aussiebroadwan/wgportal/pkg/slogx"
)

const (
	ScopeDevicesWrite = "devices:write"
	ScopeAdminRead    = "admin:read"
	ScopeAdminWrite   = "admin:write"
)

// ScopesFor lists the scopes granted to u's access tokens.
func ScopesFor(u domain.User) []string {
	scopes := []string{ScopeDevicesWrite}
	if u.IsAdmin {
		scopes = append(scopes, ScopeAdminRead, ScopeAdminWrite)
	}
	return scopes
}

// AccessToken is the result of a successful login.
type AccessToken struct {
	Token     string
	ExpiresIn time.Duration
	User      domain.User
}

type UserService struct {
	Store             store.Store
	Hasher            *cryptox.Hasher
	Signer            *jwtx.Signer
	Issuer            string
	AccessTTL         time.Duration
	PasswordMinLength int

	// Sync, when set, detaches the peers of a deactivated user from the
	// interface. Failures are logged and do not undo the deactivation.
	Sync wireguard.PeerSyncPort

	Now func() time.Time
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Authenticate checks username and password and issues an access token.
// Unknown users, inactive users and wrong passwords are indistinguishable.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (AccessToken, error) {
	log := slogx.FromContext(ctx)
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return AccessToken{}, ErrInvalidCredentials
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("login for unknown user", slog.String("username", username))
			return AccessToken{}, ErrInvalidCredentials
		}
		return AccessToken{}, err
	}

	if err := s.Hasher.Verify(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrMalformedHash) {
			log.Error("stored password hash is malformed", slog.String("user_id", user.ID))
		} else {
			log.Info("login with wrong password", slog.String("user_id", user.ID))
		}
		return AccessToken{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		log.Info("login for inactive user", slog.String("user_id", user.ID))
		return AccessToken{}, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.Store.Users().UpdateLastLogin(ctx, user.ID, now); err != nil {
		log.Error("failed to record last login", slog.String("user_id", user.ID), slog.Any("error", err))
		return AccessToken{}, err
	}
	user.LastLoginAt = &now

	ttl := s.AccessTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}
	token, err := s.Signer.Sign(jwtx.NewAccessClaims(s.Issuer, user.ID, user.Username, ScopesFor(user), ttl, now))
	if err != nil {
		log.Error("failed to sign access token", slog.Any("error", err))
		return AccessToken{}, err
	}

	log.Info("user logged in", slog.String("user_id", user.ID), slog.Bool("is_admin", user.IsAdmin))
	return AccessToken{Token: token, ExpiresIn: ttl, User: user}, nil
}

// ChangePassword replaces userID's password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	log := slogx.FromContext(ctx)
	if current == "" || next == "" {
		return fmt.Errorf("%w: current and new password are required", ErrValidation)
	}
	if err := ValidatePassword(next, s.PasswordMinLength); err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := s.Hasher.Verify(current, user.PasswordHash); err != nil {
		log.Info("password change with wrong current password", slog.String("user_id", userID))
		return ErrInvalidCredentials
	}

	hash, err := s.Hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash, s.now()); err != nil {
		log.Error("failed to update password", slog.String("user_id", userID), slog.Any("error", err))
		return err
	}

	log.Info("password changed", slog.String("user_id", userID))
	return nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

func (s *UserService) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	return s.Store.Users().ListUserSummaries(ctx)
}

type UpdateUserInput struct {
	IsActive *bool
	IsAdmin  *bool
}

// UpdateUser changes a user's active and admin flags. Admins cannot change
// their own flags. Deactivating a user deactivates all of their devices in
// the same transaction.
func (s *UserService) UpdateUser(ctx context.Context, actorID, targetID string, in UpdateUserInput) (domain.User, error) {
	log := slogx.FromContext(ctx)

	if actorID == targetID {
		log.Warn("admin attempted to modify own account", slog.String("user_id", actorID))
		return domain.User{}, ErrSelfModification
	}

	now := s.now()
	var (
		user        domain.User
		deactivated []domain.Peer
	)
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.Users().GetUserByID(ctx, targetID)
		if err != nil {
			return err
		}

		wasActive := user.IsActive
		if in.IsActive != nil {
			user.IsActive = *in.IsActive
		}
		if in.IsAdmin != nil {
			user.IsAdmin = *in.IsAdmin
		}
		user.UpdatedAt = now

		if err := tx.Users().UpdateFlags(ctx, user.ID, user.IsActive, user.IsAdmin, now); err != nil {
			return err
		}

		if in.IsActive != nil && !*in.IsActive {
			if wasActive {
				peers, err := tx.Peers().ListPeersByUser(ctx, user.ID)
				if err != nil {
					return err
				}
				for _, p := range peers {
					if p.IsActive {
						deactivated = append(deactivated, p)
					}
				}
			}
			if err := tx.Peers().DeactivatePeersForUser(ctx, user.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		log.Error("failed to update user", slog.String("user_id", targetID), slog.Any("error", err))
		return domain.User{}, err
	}

	log.Info("user updated",
		slog.String("actor_id", actorID),
		slog.String("user_id", user.ID),
		slog.Bool("is_active", user.IsActive),
		slog.Bool("is_admin", user.IsAdmin),
		slog.Int("devices_deactivated", len(deactivated)),
	)

	if s.Sync != nil {
		for _, p := range deactivated {
			if err := s.Sync.Detach(ctx, p.PublicKey); err != nil {
				telemetry.SyncFailuresTotal.WithLabelValues("detach").Inc()
				log.Error("failed to detach peer of deactivated user",
					slog.String("device_id", p.ID),
					slog.String("public_key", p.PublicKey),
					slog.String("ip_address", p.Address.String()),
					slog.Any("error", err),
				)
			}
		}
	}
	return user, nil
}

// Bootstrap creates the first admin when the user table is empty. With an
// empty password a random one is generated and returned so the caller can
// show it once. created is false when users already exist.
func (s *UserService) Bootstrap(ctx context.Context, username, password string) (created bool, generated string, err error) {
	log := slogx.FromContext(ctx)

	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, "", err
	}
	if !empty {
		return false, "", nil
	}

	if err := ValidateUsername(username); err != nil {
		return false, "", fmt.Errorf("bootstrap admin %q: %w", username, err)
	}
	if password == "" {
		password, err = cryptox.GeneratePassword()
		if err != nil {
			return false, "", err
		}
		generated = password
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return false, "", err
	}

	now := s.now()
	admin := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// Another instance may have bootstrapped between the check and now.
		empty, err := tx.Users().IsEmpty(ctx)
		if err != nil {
			return err
		}
		if !empty {
			return store.ErrAlreadyExists
		}
		return tx.Users().CreateUser(ctx, admin)
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return false, "", nil
	}
	if err != nil {
		log.Error("failed to create bootstrap admin", slog.Any("error", err))
		return false, "", err
	}

	log.Info("bootstrap admin created", slog.String("user_id", admin.ID), slog.String("username", admin.Username))
	return true, generated, nil
}
