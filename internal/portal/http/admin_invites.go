package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/wgportal/internal/portal/service"
	"github.com/aussiebroadwan/wgportal/pkg/httpx"
	"github.com/aussiebroadwan/wgportal/pkg/portalsdk"
)

// InvitesHandler handles the invitation code admin endpoints.
type InvitesHandler struct {
	InviteService *service.InviteService
}

// HandleList handles GET /v1/admin/invites
//
//	@Summary	List invitation codes
//	@Tags		Invitations
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	portalsdk.InviteListResponse
//	@Failure	401	{object}	portalsdk.ErrorResponse	"invalid_token"
//	@Failure	403	{object}	portalsdk.ErrorResponse	"insufficient_scope"
//	@Router		/v1/admin/invites [get].
func (h *InvitesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	invites, err := h.InviteService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "list_invites")
		return
	}

	now := h.InviteService.Clock()
	out := portalsdk.InviteListResponse{Invites: make([]portalsdk.Invite, 0, len(invites))}
	for _, inv := range invites {
		out.Invites = append(out.Invites, toInvite(inv, now))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleCreate handles POST /v1/admin/invites
//
//	@Summary		Create an invitation code
//	@Description	Codes are stored upper case and matched case-insensitively. max_uses defaults to 50 and expires_in_days to 30.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		portalsdk.CreateInviteRequest	true	"Invitation code"
//	@Success		201		{object}	portalsdk.Invite
//	@Failure		400		{object}	portalsdk.ErrorResponse	"invalid_request"
//	@Failure		409		{object}	portalsdk.ErrorResponse	"conflict"
//	@Router			/v1/admin/invites [post].
func (h *InvitesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.CreateInviteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	inv, err := h.InviteService.Create(r.Context(), service.CreateInviteInput{
		Code:          req.Code,
		Description:   req.Description,
		MaxUses:       req.MaxUses,
		ExpiresInDays: req.ExpiresInDays,
	})
	if err != nil {
		if errors.Is(err, service.ErrInviteCodeTaken) {
			writeError(w, http.StatusConflict, portalsdk.ErrorCodeConflict, "Invitation code already exists")
			return
		}
		writeServiceError(w, r, err, "create_invite")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toInvite(inv, h.InviteService.Clock()))
}

// HandleUpdate handles PATCH /v1/admin/invites/{id}
//
//	@Summary		Update an invitation code
//	@Description	Only the supplied fields change. max_uses may not drop below the number of uses already spent.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string							true	"Invite ID (ULID)"
//	@Param			request	body		portalsdk.UpdateInviteRequest	true	"Fields to change"
//	@Success		200		{object}	portalsdk.Invite
//	@Failure		400		{object}	portalsdk.ErrorResponse	"invalid_request"
//	@Failure		404		{object}	portalsdk.ErrorResponse	"not_found"
//	@Router			/v1/admin/invites/{id} [patch].
func (h *InvitesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.UpdateInviteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	inv, err := h.InviteService.Update(r.Context(), r.PathValue("id"), service.UpdateInviteInput{
		MaxUses:     req.MaxUses,
		ExpiresAt:   req.ExpiresAt,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		if errors.Is(err, service.ErrMaxUsesBelowUsed) {
			writeError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest, err.Error())
			return
		}
		writeServiceError(w, r, err, "update_invite")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toInvite(inv, h.InviteService.Clock()))
}

// HandleDelete handles DELETE /v1/admin/invites/{id}
//
//	@Summary		Delete an invitation code
//	@Description	Deletes the code and its usage history. Accounts created with it are kept.
//	@Tags			Invitations
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Invite ID (ULID)"
//	@Success		204	"Deleted"
//	@Failure		404	{object}	portalsdk.ErrorResponse	"not_found"
//	@Router			/v1/admin/invites/{id} [delete].
func (h *InvitesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.InviteService.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, "delete_invite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUsage handles GET /v1/admin/invites/{id}/usage
//
//	@Summary	Invitation code usage
//	@Tags		Invitations
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Invite ID (ULID)"
//	@Success	200	{object}	portalsdk.InviteUsageResponse
//	@Failure	404	{object}	portalsdk.ErrorResponse	"not_found"
//	@Router		/v1/admin/invites/{id}/usage [get].
func (h *InvitesHandler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	inv, usage, err := h.InviteService.Usage(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "invite_usage")
		return
	}

	out := portalsdk.InviteUsageResponse{
		Invite: toInvite(inv, h.InviteService.Clock()),
		Usage:  make([]portalsdk.InviteUsage, 0, len(usage)),
	}
	for _, u := range usage {
		out.Usage = append(out.Usage, portalsdk.InviteUsage{
			UserID:     u.UserID,
			Username:   u.Username,
			UserActive: u.UserActive,
			UsedAt:     u.UsedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
