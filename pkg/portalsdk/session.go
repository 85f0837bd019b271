package portalsdk

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Session is an authenticated view of the API. Tokens are not refreshed;
// once Expired reports true, log in again.
type Session struct {
	client *Client

	accessToken string
	scopes      []string
	expiresAt   time.Time
}

// NewSession wraps an access token obtained elsewhere.
func (c *Client) NewSession(accessToken, scope string, expiresIn int) *Session {
	return &Session{
		client:      c,
		accessToken: accessToken,
		scopes:      strings.Fields(scope),
		expiresAt:   time.Now().Add(time.Duration(expiresIn) * time.Second),
	}
}

func (s *Session) AccessToken() string { return s.accessToken }

func (s *Session) Scopes() []string { return s.scopes }

func (s *Session) Expired() bool { return !time.Now().Before(s.expiresAt) }

func (s *Session) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	return s.client.do(ctx, method, path, s.accessToken, in)
}

// ============================================================================
// Account
// ============================================================================

func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	resp, err := s.do(ctx, http.MethodPost, "/v1/account/password", ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// ============================================================================
// Devices
// ============================================================================

func (s *Session) CreateDevice(ctx context.Context, name string) (*CreateDeviceResponse, error) {
	resp, err := s.do(ctx, http.MethodPost, "/v1/devices", CreateDeviceRequest{Name: name})
	if err != nil {
		return nil, err
	}

	var out CreateDeviceResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) ListDevices(ctx context.Context) ([]Device, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/devices", nil)
	if err != nil {
		return nil, err
	}

	var out DeviceListResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

func (s *Session) GetDevice(ctx context.Context, id string) (*Device, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/devices/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var out Device
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) DeleteDevice(ctx context.Context, id string) (*DeleteDeviceResponse, error) {
	resp, err := s.do(ctx, http.MethodDelete, "/v1/devices/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var out DeleteDeviceResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeviceConfig downloads the WireGuard client config of a device.
func (s *Session) DeviceConfig(ctx context.Context, id string) (string, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/devices/"+url.PathEscape(id)+"/config", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", parseErrorResponse(resp, body)
	}
	return string(body), nil
}

// ============================================================================
// Admin: invitation codes
// ============================================================================

func (s *Session) ListInvites(ctx context.Context) ([]Invite, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/admin/invites", nil)
	if err != nil {
		return nil, err
	}

	var out InviteListResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Invites, nil
}

func (s *Session) CreateInvite(ctx context.Context, req CreateInviteRequest) (*Invite, error) {
	resp, err := s.do(ctx, http.MethodPost, "/v1/admin/invites", req)
	if err != nil {
		return nil, err
	}

	var out Invite
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) UpdateInvite(ctx context.Context, id string, req UpdateInviteRequest) (*Invite, error) {
	resp, err := s.do(ctx, http.MethodPatch, "/v1/admin/invites/"+url.PathEscape(id), req)
	if err != nil {
		return nil, err
	}

	var out Invite
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) DeleteInvite(ctx context.Context, id string) error {
	resp, err := s.do(ctx, http.MethodDelete, "/v1/admin/invites/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (s *Session) InviteUsage(ctx context.Context, id string) (*InviteUsageResponse, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/admin/invites/"+url.PathEscape(id)+"/usage", nil)
	if err != nil {
		return nil, err
	}

	var out InviteUsageResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ============================================================================
// Admin: users
// ============================================================================

func (s *Session) ListUsers(ctx context.Context) ([]User, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/admin/users", nil)
	if err != nil {
		return nil, err
	}

	var out UserListResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (s *Session) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	resp, err := s.do(ctx, http.MethodPatch, "/v1/admin/users/"+url.PathEscape(id), req)
	if err != nil {
		return nil, err
	}

	var out User
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
