package portalsdk

import "time"

// ============================================================================
// Common
// ============================================================================

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	// Error is a stable machine readable code, e.g. "invite_expired"
	Error string `json:"error" example:"invalid_request"`

	// ErrorDescription is a human readable explanation
	ErrorDescription string `json:"error_description,omitempty" example:"request body is not valid JSON"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status" example:"ok"`
	Uptime  string        `json:"uptime" example:"1h2m3s"`
	Version string        `json:"version" example:"dev"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks holds the per dependency results of /readyz.
type HealthChecks struct {
	Database string `json:"database" example:"ok"`
	Sync     string `json:"sync" example:"cli"`
}

// ============================================================================
// Registration & Login
// ============================================================================

// RegisterRequest redeems an invitation code for a new account.
type RegisterRequest struct {
	InviteCode string `json:"invite_code" example:"WELCOME2024"`
	Username   string `json:"username" example:"alice"`
	Password   string `json:"password" example:"correct horse battery"`
}

type RegisterResponse struct {
	UserID   string `json:"user_id" example:"01JB8X3Y4Z5A6B7C8D9E0F1G2H"`
	Username string `json:"username" example:"alice"`
}

type LoginRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"correct horse battery"`
}

// TokenResponse carries a bearer access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type" example:"Bearer"`

	// ExpiresIn is the lifetime of the access token in seconds
	ExpiresIn int `json:"expires_in" example:"3600"`

	// Scope is the space delimited list of granted scopes
	Scope string `json:"scope,omitempty" example:"devices:write"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ============================================================================
// Devices
// ============================================================================

type CreateDeviceRequest struct {
	Name string `json:"name" example:"laptop"`
}

type CreateDeviceResponse struct {
	DeviceID  string `json:"device_id" example:"01JB8X3Y4Z5A6B7C8D9E0F1G2H"`
	Name      string `json:"name" example:"laptop"`
	IPAddress string `json:"ip_address" example:"10.0.0.2"`
}

// Device is a provisioned peer as shown to its owner. The private key is
// only ever returned inside the rendered config file.
type Device struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" example:"laptop"`
	IPAddress string    `json:"ip_address" example:"10.0.0.2"`
	PublicKey string    `json:"public_key"`
	IsActive  bool      `json:"is_active"`
	Synced    bool      `json:"synced"`
	CreatedAt time.Time `json:"created_at"`
}

type DeviceListResponse struct {
	Devices []Device `json:"devices"`
}

// DeleteDeviceResponse reports whether the interface confirmed the removal.
// A false DaemonSynced means the peer may still be live on the gateway.
type DeleteDeviceResponse struct {
	DeviceID     string `json:"device_id"`
	DaemonSynced bool   `json:"daemon_synced"`
}

// ============================================================================
// Invitation codes (admin)
// ============================================================================

type Invite struct {
	ID            string    `json:"id"`
	Code          string    `json:"code" example:"WELCOME2024"`
	Description   string    `json:"description,omitempty"`
	MaxUses       int       `json:"max_uses" example:"50"`
	UsedCount     int       `json:"used_count" example:"3"`
	RemainingUses int       `json:"remaining_uses" example:"47"`
	ExpiresAt     time.Time `json:"expires_at"`
	IsActive      bool      `json:"is_active"`
	IsExpired     bool      `json:"is_expired"`
	IsFull        bool      `json:"is_full"`
	CreatedAt     time.Time `json:"created_at"`
}

type InviteListResponse struct {
	Invites []Invite `json:"invites"`
}

// CreateInviteRequest mints a new code. Zero MaxUses and ExpiresInDays
// select the server defaults.
type CreateInviteRequest struct {
	Code          string `json:"code" example:"WELCOME2024"`
	Description   string `json:"description,omitempty"`
	MaxUses       int    `json:"max_uses,omitempty" example:"50"`
	ExpiresInDays int    `json:"expires_in_days,omitempty" example:"30"`
}

// UpdateInviteRequest changes only the fields that are set.
type UpdateInviteRequest struct {
	MaxUses     *int       `json:"max_uses,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Description *string    `json:"description,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"`
}

type InviteUsage struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	UserActive bool      `json:"user_active"`
	UsedAt     time.Time `json:"used_at"`
}

type InviteUsageResponse struct {
	Invite Invite        `json:"invite"`
	Usage  []InviteUsage `json:"usage"`
}

// ============================================================================
// Users (admin)
// ============================================================================

type User struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	IsActive    bool       `json:"is_active"`
	IsAdmin     bool       `json:"is_admin"`
	DeviceCount int        `json:"device_count"`
	InviteCode  string     `json:"invite_code,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type UserListResponse struct {
	Users []User `json:"users"`
}

type UpdateUserRequest struct {
	IsActive *bool `json:"is_active,omitempty"`
	IsAdmin  *bool `json:"is_admin,omitempty"`
}
