package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/wgportal/internal/portal/service"
	"github.com/aussiebroadwan/wgportal/internal/portal/wireguard"
	"github.com/aussiebroadwan/wgportal/pkg/httpx"
	"github.com/aussiebroadwan/wgportal/pkg/portalsdk"
	"github.com/aussiebroadwan/wgportal/pkg/slogx"
)

func writeError(w http.ResponseWriter, status int, code, desc string) {
	httpx.WriteJSON(w, status, portalsdk.ErrorResponse{Error: code, ErrorDescription: desc})
}

func writeInvalidJSON(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest, "Invalid JSON body")
}

// writeServiceError maps the errors shared by several handlers. Handlers
// match their own specific errors first and fall through to this.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest, err.Error())
	case errors.Is(err, service.ErrDeviceNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrInviteNotFound):
		writeError(w, http.StatusNotFound, portalsdk.ErrorCodeNotFound, err.Error())
	case errors.Is(err, service.ErrUserInactive):
		writeError(w, http.StatusForbidden, portalsdk.ErrorCodeAccountDisabled, "Account is disabled")
	case errors.Is(err, service.ErrAddressConflict):
		writeError(w, http.StatusConflict, portalsdk.ErrorCodeAddressConflict, "Address allocation conflict, please retry")
	case errors.Is(err, service.ErrDeviceConflict):
		writeError(w, http.StatusConflict, portalsdk.ErrorCodeConflict, "Device key already registered")
	case errors.Is(err, service.ErrDeviceLimit):
		writeError(w, http.StatusConflict, portalsdk.ErrorCodeDeviceLimit, "Device limit reached, remove a device first")
	case errors.Is(err, wireguard.ErrPoolExhausted):
		writeError(w, http.StatusServiceUnavailable, portalsdk.ErrorCodePoolExhausted, "No free VPN addresses left")
	case errors.Is(err, wireguard.ErrExternalSync):
		writeError(w, http.StatusBadGateway, portalsdk.ErrorCodeSyncFailed, "Failed to update the VPN interface")
	default:
		slogx.FromContext(r.Context()).Error("request failed", slog.String("op", op), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, portalsdk.ErrorCodeServerError, "Internal server error")
	}
}
