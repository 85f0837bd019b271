package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/wgportal/internal/portal/service"
	"github.com/aussiebroadwan/wgportal/pkg/httpx"
	"github.com/aussiebroadwan/wgportal/pkg/portalsdk"
)

type RegisterHandler struct {
	RegistrationService *service.RegistrationService
}

// ServeHTTP godoc
//
//	@Summary		Register with an invitation code
//	@Description	Create an account by redeeming one use of an invitation code.
//	@Description	Each rejection reason has its own error code so clients can tell an expired code from a used up one.
//	@Tags			Registration
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.RegisterRequest	true	"Registration request"
//	@Success		201		{object}	portalsdk.RegisterResponse	"user_id, username"
//	@Failure		400		{object}	portalsdk.ErrorResponse		"invalid_invite_code, invite_disabled, invite_expired, invite_exhausted, username_taken, password_too_short, invalid_username, invalid_request"
//	@Failure		429		{object}	portalsdk.ErrorResponse		"rate_limit_exceeded"
//	@Failure		500		{object}	portalsdk.ErrorResponse		"server_error"
//	@Router			/v1/register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	user, err := h.RegistrationService.Register(r.Context(), req.InviteCode, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInviteNotFound):
			writeError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidInviteCode, "Invalid invitation code")
		case errors.Is(err, service.ErrInviteDisabled):
			writeError(w, http.StatusBadRequest, portalsdk.ErrorCodeInviteDisabled, "Invitation code is disabled")
		case errors.Is(err, service.ErrInviteExpired):
			writeError(w, http.StatusBadRequest, portalsdk.ErrorCodeInviteExpired, "Invitation code has expired")
		case errors.Is(err, service.ErrInviteExhausted):
			writeError(w, http.StatusBadRequest, portalsdk.ErrorCodeInviteExhausted, "Invitation code usage limit reached")
		case errors.Is(err, service.ErrUsernameTaken):
			writeError(w, http.StatusBadRequest, portalsdk.ErrorCodeUsernameTaken, "Username already taken")
		case errors.Is(err, service.ErrPasswordTooShort):
			writeError(w, http.StatusBadRequest, portalsdk.ErrorCodePasswordTooShort, "Password is too short")
		case errors.Is(err, service.ErrInvalidUsername):
			writeError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidUsername,
				"Username must be 3 to 32 letters, digits, '_', '.' or '-'")
		default:
			writeServiceError(w, r, err, "register")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, portalsdk.RegisterResponse{
		UserID:   user.ID,
		Username: user.Username,
	})
}
