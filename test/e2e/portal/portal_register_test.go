package portal_test

import (
	"testing"

	"github.com/aussiebroadwan/wgportal/pkg/portalsdk"
	"github.com/stretchr/testify/require"
)

// TestRegistrationConsumesInvite walks a two use code through to exhaustion.
func TestRegistrationConsumesInvite(t *testing.T) {
	baseURL, cleanup := setupPortalContainer(t)
	defer cleanup()

	client := portalsdk.NewClient(baseURL)
	admin := loginAdmin(t, client)

	inv := createInvite(t, admin, "team-alpha", 2)
	require.Equal(t, "TEAM-ALPHA", inv.Code, "codes are stored upper case")

	// Codes match regardless of case and surrounding space.
	registerAndLogin(t, client, " team-alpha ", "alice")
	registerAndLogin(t, client, "TEAM-ALPHA", "bob")

	_, err := client.Register(t.Context(), "TEAM-ALPHA", "carol", userPassword)
	require.ErrorIs(t, err, portalsdk.ErrInviteExhausted)

	usage, err := admin.InviteUsage(t.Context(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, 2, usage.Invite.UsedCount)
	require.True(t, usage.Invite.IsFull)
	require.Len(t, usage.Usage, 2)

	users, err := admin.ListUsers(t.Context())
	require.NoError(t, err)
	codes := map[string]string{}
	for _, u := range users {
		codes[u.Username] = u.InviteCode
	}
	require.Equal(t, "TEAM-ALPHA", codes["alice"])
	require.Empty(t, codes[adminUsername], "bootstrap admin used no invite")
}

// TestRegistrationRejections checks each refusal reason surfaces its own code.
func TestRegistrationRejections(t *testing.T) {
	baseURL, cleanup := setupPortalContainer(t)
	defer cleanup()

	client := portalsdk.NewClient(baseURL)
	admin := loginAdmin(t, client)

	inv := createInvite(t, admin, "REJECT-ME", 5)

	_, err := client.Register(t.Context(), "NOPE", "dave", userPassword)
	require.ErrorIs(t, err, portalsdk.ErrInvalidInviteCode)

	_, err = client.Register(t.Context(), inv.Code, "dave", "short")
	require.ErrorIs(t, err, portalsdk.ErrPasswordTooShort)

	_, err = client.Register(t.Context(), inv.Code, "x", userPassword)
	require.ErrorIs(t, err, portalsdk.ErrInvalidUsername)

	_, err = client.Register(t.Context(), inv.Code, "ADMIN", userPassword)
	require.ErrorIs(t, err, portalsdk.ErrUsernameTaken, "usernames are case-insensitive")

	inactive := false
	_, err = admin.UpdateInvite(t.Context(), inv.ID, portalsdk.UpdateInviteRequest{IsActive: &inactive})
	require.NoError(t, err)

	_, err = client.Register(t.Context(), inv.Code, "dave", userPassword)
	require.ErrorIs(t, err, portalsdk.ErrInviteDisabled)

	// None of the refused attempts spent a use.
	invites, err := admin.ListInvites(t.Context())
	require.NoError(t, err)
	require.Len(t, invites, 1)
	require.Zero(t, invites[0].UsedCount)
}

// TestLoginRateLimited uses the default strict tier on the public routes.
func TestLoginRateLimited(t *testing.T) {
	baseURL, cleanup := setupPortalContainerWithDefaultRateLimits(t)
	defer cleanup()

	client := portalsdk.NewClient(baseURL)

	var limited bool
	for range 20 {
		_, err := client.Login(t.Context(), "ghost", "wrong-password")
		require.Error(t, err)
		if errorsIsRateLimited(err) {
			limited = true
			break
		}
		require.ErrorIs(t, err, portalsdk.ErrInvalidCredentials)
	}
	require.True(t, limited, "login should be rate limited within 20 attempts")
}
