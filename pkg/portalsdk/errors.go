package portalsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes returned in ErrorResponse.Error.
const (
	ErrorCodeInvalidRequest    = "invalid_request"
	ErrorCodeInvalidInviteCode = "invalid_invite_code"
	ErrorCodeInviteDisabled    = "invite_disabled"
	ErrorCodeInviteExpired     = "invite_expired"
	ErrorCodeInviteExhausted   = "invite_exhausted"
	ErrorCodeUsernameTaken     = "username_taken"
	ErrorCodePasswordTooShort  = "password_too_short"
	ErrorCodeInvalidUsername   = "invalid_username"
	ErrorCodeInvalidCreds      = "invalid_credentials"
	ErrorCodeInvalidToken      = "invalid_token"
	ErrorCodeInsufficientScope = "insufficient_scope"
	ErrorCodeRateLimited       = "rate_limit_exceeded"
	ErrorCodeNotFound          = "not_found"
	ErrorCodeConflict          = "conflict"
	ErrorCodeAccountDisabled   = "account_disabled"
	ErrorCodeSyncFailed        = "sync_failed"
	ErrorCodeAddressConflict   = "address_conflict"
	ErrorCodePoolExhausted     = "pool_exhausted"
	ErrorCodeDeviceLimit       = "device_limit_reached"
	ErrorCodeServerError       = "server_error"
)

// APIError is a non-2xx response from the portal.
type APIError struct {
	// StatusCode is the HTTP status of the response
	StatusCode int `json:"-"`

	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("portal: %s (%d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("portal: %s: %s (%d)", e.Code, e.Description, e.StatusCode)
}

// Is matches on the error code so callers can compare against the
// predefined errors below whatever the description says.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidRequest     = &APIError{StatusCode: http.StatusBadRequest, Code: ErrorCodeInvalidRequest}
	ErrInvalidInviteCode  = &APIError{StatusCode: http.StatusBadRequest, Code: ErrorCodeInvalidInviteCode}
	ErrInviteDisabled     = &APIError{StatusCode: http.StatusBadRequest, Code: ErrorCodeInviteDisabled}
	ErrInviteExpired      = &APIError{StatusCode: http.StatusBadRequest, Code: ErrorCodeInviteExpired}
	ErrInviteExhausted    = &APIError{StatusCode: http.StatusBadRequest, Code: ErrorCodeInviteExhausted}
	ErrUsernameTaken      = &APIError{StatusCode: http.StatusBadRequest, Code: ErrorCodeUsernameTaken}
	ErrPasswordTooShort   = &APIError{StatusCode: http.StatusBadRequest, Code: ErrorCodePasswordTooShort}
	ErrInvalidUsername    = &APIError{StatusCode: http.StatusBadRequest, Code: ErrorCodeInvalidUsername}
	ErrInvalidCredentials = &APIError{StatusCode: http.StatusUnauthorized, Code: ErrorCodeInvalidCreds}
	ErrInvalidToken       = &APIError{StatusCode: http.StatusUnauthorized, Code: ErrorCodeInvalidToken}
	ErrInsufficientScope  = &APIError{StatusCode: http.StatusForbidden, Code: ErrorCodeInsufficientScope}
	ErrRateLimited        = &APIError{StatusCode: http.StatusTooManyRequests, Code: ErrorCodeRateLimited}
	ErrNotFound           = &APIError{StatusCode: http.StatusNotFound, Code: ErrorCodeNotFound}
	ErrConflict           = &APIError{StatusCode: http.StatusConflict, Code: ErrorCodeConflict}
	ErrAccountDisabled    = &APIError{StatusCode: http.StatusForbidden, Code: ErrorCodeAccountDisabled}
	ErrSyncFailed         = &APIError{StatusCode: http.StatusBadGateway, Code: ErrorCodeSyncFailed}
	ErrAddressConflict    = &APIError{StatusCode: http.StatusConflict, Code: ErrorCodeAddressConflict}
	ErrPoolExhausted      = &APIError{StatusCode: http.StatusServiceUnavailable, Code: ErrorCodePoolExhausted}
	ErrDeviceLimit        = &APIError{StatusCode: http.StatusConflict, Code: ErrorCodeDeviceLimit}
	ErrServerError        = &APIError{StatusCode: http.StatusInternalServerError, Code: ErrorCodeServerError}
)

// parseErrorResponse builds an *APIError from a failed response. Bodies
// that are not the JSON error shape still produce an error carrying the
// status.
func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = http.StatusText(resp.StatusCode)
		apiErr.Description = string(body)
	}
	return apiErr
}
