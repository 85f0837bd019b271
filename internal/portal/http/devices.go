package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/wgportal/internal/portal/service"
	"github.com/aussiebroadwan/wgportal/pkg/httpx"
	"github.com/aussiebroadwan/wgportal/pkg/portalsdk"
	"github.com/aussiebroadwan/wgportal/pkg/slogx"
)

// DevicesHandler serves the caller's own devices. Every lookup is scoped to
// the token subject, so another user's device id is a plain 404.
type DevicesHandler struct {
	ProvisioningService *service.ProvisioningService
}

// HandleCreate handles POST /v1/devices
//
//	@Summary		Add a device
//	@Description	Generate a key pair, allocate a VPN address and register the peer on the gateway interface.
//	@Description	If the interface cannot be updated the device is not kept and 502 is returned.
//	@Tags			Devices
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		portalsdk.CreateDeviceRequest	true	"Device name"
//	@Success		201		{object}	portalsdk.CreateDeviceResponse	"device_id, name, ip_address"
//	@Failure		400		{object}	portalsdk.ErrorResponse			"invalid_request"
//	@Failure		401		{object}	portalsdk.ErrorResponse			"invalid_token"
//	@Failure		403		{object}	portalsdk.ErrorResponse			"account_disabled"
//	@Failure		409		{object}	portalsdk.ErrorResponse			"address_conflict, conflict or device_limit_reached"
//	@Failure		502		{object}	portalsdk.ErrorResponse			"sync_failed"
//	@Failure		503		{object}	portalsdk.ErrorResponse			"pool_exhausted"
//	@Router			/v1/devices [post].
func (h *DevicesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.CreateDeviceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	peer, err := h.ProvisioningService.AddDevice(r.Context(), httpx.UserID(r.Context()), req.Name)
	if err != nil {
		writeServiceError(w, r, err, "add_device")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, portalsdk.CreateDeviceResponse{
		DeviceID:  peer.ID,
		Name:      peer.Name,
		IPAddress: peer.Address.String(),
	})
}

// HandleList handles GET /v1/devices
//
//	@Summary	List devices
//	@Tags		Devices
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	portalsdk.DeviceListResponse
//	@Failure	401	{object}	portalsdk.ErrorResponse	"invalid_token"
//	@Router		/v1/devices [get].
func (h *DevicesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	peers, err := h.ProvisioningService.ListDevices(r.Context(), httpx.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "list_devices")
		return
	}

	out := portalsdk.DeviceListResponse{Devices: make([]portalsdk.Device, 0, len(peers))}
	for _, p := range peers {
		out.Devices = append(out.Devices, toDevice(p))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /v1/devices/{id}
//
//	@Summary	Get a device
//	@Tags		Devices
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Device ID (ULID)"
//	@Success	200	{object}	portalsdk.Device
//	@Failure	404	{object}	portalsdk.ErrorResponse	"not_found"
//	@Router		/v1/devices/{id} [get].
func (h *DevicesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	peer, err := h.ProvisioningService.GetDevice(r.Context(), r.PathValue("id"), httpx.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "get_device")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toDevice(peer))
}

// HandleDelete handles DELETE /v1/devices/{id}
//
//	@Summary		Remove a device
//	@Description	Remove the peer from the gateway interface and delete it. The record is deleted even when the interface
//	@Description	could not be updated; daemon_synced is false in that case.
//	@Tags			Devices
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Device ID (ULID)"
//	@Success		200	{object}	portalsdk.DeleteDeviceResponse
//	@Failure		404	{object}	portalsdk.ErrorResponse	"not_found"
//	@Router			/v1/devices/{id} [delete].
func (h *DevicesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	synced, err := h.ProvisioningService.RemoveDevice(r.Context(), id, httpx.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "remove_device")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.DeleteDeviceResponse{DeviceID: id, DaemonSynced: synced})
}

// HandleConfig handles GET /v1/devices/{id}/config
//
//	@Summary		Download client config
//	@Description	Render the WireGuard client configuration of an active device, private key included.
//	@Tags			Devices
//	@Produce		plain
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Device ID (ULID)"
//	@Success		200	{string}	string	"wg-quick config file"
//	@Failure		404	{object}	portalsdk.ErrorResponse	"not_found"
//	@Router			/v1/devices/{id}/config [get].
func (h *DevicesHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.ProvisioningService.DeviceConfig(r.Context(), r.PathValue("id"), httpx.UserID(r.Context()))
	if err != nil {
		if errors.Is(err, service.ErrDeviceNotFound) {
			writeError(w, http.StatusNotFound, portalsdk.ErrorCodeNotFound, "Device not found or inactive")
			return
		}
		writeServiceError(w, r, err, "device_config")
		return
	}

	slogx.FromContext(r.Context()).Info("device config downloaded", slog.String("device_id", r.PathValue("id")))

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	// FileName is restricted to [A-Za-z0-9._-] so it needs no escaping.
	w.Header().Set("Content-Disposition", `attachment; filename="`+cfg.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(cfg.Content))
}
