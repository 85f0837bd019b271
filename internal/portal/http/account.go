package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/wgportal/internal/portal/service"
	"github.com/aussiebroadwan/wgportal/pkg/httpx"
	"github.com/aussiebroadwan/wgportal/pkg/portalsdk"
)

type ChangePasswordHandler struct {
	UserService *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Change password
//	@Description	Replace the caller's password. The current password must be supplied.
//	@Tags			Account
//	@Accept			json
//	@Produce		json
//	@Param			request	body	portalsdk.ChangePasswordRequest	true	"Current and new password"
//	@Success		204		"Password changed"
//	@Failure		400		{object}	portalsdk.ErrorResponse	"invalid_request, invalid_credentials, password_too_short"
//	@Failure		401		{object}	portalsdk.ErrorResponse	"invalid_token"
//	@Security		BearerAuth
//	@Router			/v1/account/password [post].
func (h *ChangePasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	err := h.UserService.ChangePassword(r.Context(), httpx.UserID(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidCreds, "Current password is incorrect")
		case errors.Is(err, service.ErrPasswordTooShort):
			writeError(w, http.StatusBadRequest, portalsdk.ErrorCodePasswordTooShort, "New password is too short")
		default:
			writeServiceError(w, r, err, "change_password")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
