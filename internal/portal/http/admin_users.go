package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/wgportal/internal/portal/domain"
	"github.com/aussiebroadwan/wgportal/internal/portal/service"
	"github.com/aussiebroadwan/wgportal/pkg/httpx"
	"github.com/aussiebroadwan/wgportal/pkg/portalsdk"
)

// UsersHandler handles the user admin endpoints.
type UsersHandler struct {
	UserService *service.UserService
}

// HandleList handles GET /v1/admin/users
//
//	@Summary		List users
//	@Description	Every account with its device count and the invitation code it registered with.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	portalsdk.UserListResponse
//	@Failure		401	{object}	portalsdk.ErrorResponse	"invalid_token"
//	@Failure		403	{object}	portalsdk.ErrorResponse	"insufficient_scope"
//	@Router			/v1/admin/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "list_users")
		return
	}

	out := portalsdk.UserListResponse{Users: make([]portalsdk.User, 0, len(users))}
	for _, u := range users {
		out.Users = append(out.Users, toUser(u))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleUpdate handles PATCH /v1/admin/users/{id}
//
//	@Summary		Update user flags
//	@Description	Activate, deactivate, promote or demote a user. Deactivation also deactivates every device of the user
//	@Description	and removes them from the gateway interface. Admins cannot change their own flags.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string						true	"User ID (ULID)"
//	@Param			request	body		portalsdk.UpdateUserRequest	true	"Flags to change"
//	@Success		200		{object}	portalsdk.User
//	@Failure		400		{object}	portalsdk.ErrorResponse	"invalid_request"
//	@Failure		404		{object}	portalsdk.ErrorResponse	"not_found"
//	@Router			/v1/admin/users/{id} [patch].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.UpdateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}
	if req.IsActive == nil && req.IsAdmin == nil {
		writeError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest, "is_active or is_admin is required")
		return
	}

	ctx := r.Context()
	user, err := h.UserService.UpdateUser(ctx, httpx.UserID(ctx), r.PathValue("id"), service.UpdateUserInput{
		IsActive: req.IsActive,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		if errors.Is(err, service.ErrSelfModification) {
			writeError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest, "Cannot modify your own account")
			return
		}
		writeServiceError(w, r, err, "update_user")
		return
	}

	// The listing carries device count and invite code.
	summary := domain.UserSummary{User: user}
	if users, err := h.UserService.ListUsers(ctx); err == nil {
		for _, u := range users {
			if u.ID == user.ID {
				summary = u
				break
			}
		}
	}
	httpx.WriteJSON(w, http.StatusOK, toUser(summary))
}
