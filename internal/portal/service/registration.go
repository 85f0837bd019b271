package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/wgportal/internal/portal/domain"
	"github.com/aussiebroadwan/wgportal/internal/portal/store"
	"github.com/aussiebroadwan/wgportal/internal/portal/telemetry"
	"github.com/aussiebroadwan/wgportal/pkg/cryptox"
	"github.com/aussiebroadwan/wgportal/pkg/idx"
	"github.com/aussiebroadwan/wgportal/pkg/slogx"
)

const DefaultPasswordMinLength = 8

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

// ValidateUsername accepts 3 to 32 characters of letters, digits, '_', '.'
// and '-'.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// ValidatePassword enforces the minimum length in characters.
func ValidatePassword(password string, minLength int) error {
	if minLength <= 0 {
		minLength = DefaultPasswordMinLength
	}
	if utf8.RuneCountInString(password) < minLength {
		return ErrPasswordTooShort
	}
	return nil
}

// RegistrationService creates accounts. Every new user spends one use of an
// invitation code; user insert and consumption share one transaction.
type RegistrationService struct {
	Store             store.Store
	Invites           *InviteService
	Hasher            *cryptox.Hasher
	PasswordMinLength int
	Now               func() time.Time
}

// Register validates the input, checks the code, and then creates the user
// and consumes the code atomically. The code is checked twice: once up
// front so an unusable code fails before the password is hashed, and again
// under the write lock where it decides.
func (s *RegistrationService) Register(ctx context.Context, code, username, password string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate input
	username = strings.TrimSpace(username)
	if strings.TrimSpace(code) == "" || username == "" || password == "" {
		return domain.User{}, fmt.Errorf("%w: invite_code, username and password are required", ErrValidation)
	}
	if err := ValidateUsername(username); err != nil {
		return domain.User{}, err
	}
	if err := ValidatePassword(password, s.PasswordMinLength); err != nil {
		return domain.User{}, err
	}

	// 2. Fast fail on an unusable code
	_, status, err := s.Invites.Validate(ctx, code)
	if err != nil {
		log.Error("failed to look up invite", slog.Any("error", err))
		return domain.User{}, err
	}
	if err := InviteStatusError(status); err != nil {
		telemetry.InviteConsumptionsTotal.WithLabelValues(status.String()).Inc()
		log.Warn("registration attempted with unusable invite",
			slog.String("username", username),
			slog.String("status", status.String()),
		)
		return domain.User{}, err
	}

	// 3. Hash the password outside the transaction; argon2 is slow and the
	// write lock is shared by every writer.
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	// 4. Create the user and consume the code together
	now := s.now()
	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var inv domain.Invite
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Users().GetUserByUsername(ctx, username)
		if err == nil {
			return ErrUsernameTaken
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("check username: %w", err)
		}

		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrUsernameTaken
			}
			return fmt.Errorf("create user: %w", err)
		}

		inv, err = s.Invites.Consume(ctx, tx, code, user.ID)
		return err
	})
	if err != nil {
		if result := inviteResult(err); result != "error" {
			telemetry.InviteConsumptionsTotal.WithLabelValues(result).Inc()
		}
		switch {
		case errors.Is(err, ErrUsernameTaken):
			log.Warn("registration attempted with taken username", slog.String("username", username))
		case inviteResult(err) != "error":
			log.Warn("invite rejected at consumption",
				slog.String("username", username),
				slog.String("result", inviteResult(err)),
			)
		default:
			log.Error("registration failed", slog.String("username", username), slog.Any("error", err))
		}
		return domain.User{}, err
	}
	telemetry.InviteConsumptionsTotal.WithLabelValues(inviteResult(nil)).Inc()

	log.Info("user registered via invite",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
		slog.String("invite_id", inv.ID),
		slog.Int("invite_used_count", inv.UsedCount),
	)
	return user, nil
}

func (s *RegistrationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
