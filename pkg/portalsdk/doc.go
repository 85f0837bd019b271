/*
Package portalsdk is a Go client for the wgportal HTTP API.

# Client vs Session

Client covers the public endpoints: registration, login and health probes.
Logging in returns a Session which carries the bearer token for everything
else.

	client := portalsdk.NewClient("https://vpn.example.com")

	// Redeem an invitation code
	user, err := client.Register(ctx, "WELCOME2024", "alice", "correct horse")

	// Authenticate
	session, err := client.Login(ctx, "alice", "correct horse")

	// Provision a device and download its config
	dev, err := session.CreateDevice(ctx, "laptop")
	conf, err := session.DeviceConfig(ctx, dev.DeviceID)

Admin operations (invitation codes, user flags) are also Session methods and
need a token carrying the admin scopes.

# Errors

Non-2xx responses are returned as *APIError. Match them with errors.Is
against the predefined values, which compare on the error code only:

	if errors.Is(err, portalsdk.ErrInviteExhausted) { ... }
*/
package portalsdk
