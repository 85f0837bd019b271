package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/wgportal/internal/portal/service"
	"github.com/aussiebroadwan/wgportal/pkg/httpx"
	"github.com/aussiebroadwan/wgportal/pkg/portalsdk"
)

type LoginHandler struct {
	UserService *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Log in
//	@Description	Exchange a username and password for a bearer access token. Disabled accounts get the same error as a wrong password.
//	@Tags			Registration
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	portalsdk.TokenResponse	"access_token, token_type, expires_in, scope"
//	@Failure		400		{object}	portalsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	portalsdk.ErrorResponse	"invalid_credentials"
//	@Failure		429		{object}	portalsdk.ErrorResponse	"rate_limit_exceeded"
//	@Router			/v1/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest, "username and password are required")
		return
	}

	tok, err := h.UserService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, portalsdk.ErrorCodeInvalidCreds, "Invalid username or password")
			return
		}
		writeServiceError(w, r, err, "login")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, portalsdk.TokenResponse{
		AccessToken: tok.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int(tok.ExpiresIn.Seconds()),
		Scope:       strings.Join(service.ScopesFor(tok.User), " "),
	})
}
