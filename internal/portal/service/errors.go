package service

import (
	"errors"

	"github.com/aussiebroadwan/wgportal/internal/portal/domain"
)

// ErrValidation is wrapped by every input validation failure.
var ErrValidation = errors.New("validation failed")

var (
	ErrInviteNotFound    = errors.New("invalid invitation code")
	ErrInviteDisabled    = errors.New("invitation code is disabled")
	ErrInviteExpired     = errors.New("invitation code has expired")
	ErrInviteExhausted   = errors.New("invitation code usage limit reached")
	ErrInviteCodeTaken   = errors.New("invitation code already exists")
	ErrMaxUsesBelowUsed  = errors.New("max uses cannot be lower than the current use count")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrPasswordTooShort  = errors.New("password too short")
	ErrInvalidUsername   = errors.New("invalid username")
	ErrInvalidDeviceName = errors.New("invalid device name")
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user is inactive")
	ErrSelfModification   = errors.New("cannot change your own account flags")
)

var (
	ErrDeviceNotFound  = errors.New("device not found")
	ErrAddressConflict = errors.New("address allocation conflict")
	ErrDeviceConflict  = errors.New("device key already registered")
	ErrDeviceLimit     = errors.New("device limit reached")
)

// InviteStatusError maps a non-valid status onto its sentinel.
func InviteStatusError(st domain.InviteStatus) error {
	switch st {
	case domain.InviteValid:
		return nil
	case domain.InviteDisabled:
		return ErrInviteDisabled
	case domain.InviteExpired:
		return ErrInviteExpired
	case domain.InviteExhausted:
		return ErrInviteExhausted
	default:
		return ErrInviteNotFound
	}
}

// inviteResult is the metric label for a consumption outcome.
func inviteResult(err error) string {
	switch {
	case err == nil:
		return domain.InviteValid.String()
	case errors.Is(err, ErrInviteNotFound):
		return domain.InviteNotFound.String()
	case errors.Is(err, ErrInviteDisabled):
		return domain.InviteDisabled.String()
	case errors.Is(err, ErrInviteExpired):
		return domain.InviteExpired.String()
	case errors.Is(err, ErrInviteExhausted):
		return domain.InviteExhausted.String()
	default:
		return "error"
	}
}
