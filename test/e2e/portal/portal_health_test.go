package portal_test

import (
	"testing"

	"github.com/aussiebroadwan/wgportal/pkg/portalsdk"
	"github.com/stretchr/testify/require"
)

// TestLivezEndpoint verifies liveness before anyone has logged in.
func TestLivezEndpoint(t *testing.T) {
	baseURL, cleanup := setupPortalContainer(t)
	defer cleanup()

	client := portalsdk.NewClient(baseURL)

	health, err := client.GetLiveness(t.Context())
	assertHealthy(t, health, err)
	require.NotEmpty(t, health.Version)
}

// TestReadyzEndpoint verifies the database check and the reported sync mode.
func TestReadyzEndpoint(t *testing.T) {
	baseURL, cleanup := setupPortalContainer(t)
	defer cleanup()

	client := portalsdk.NewClient(baseURL)

	health, err := client.GetReadiness(t.Context())
	assertHealthy(t, health, err)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Database)
	require.Equal(t, "noop", health.Checks.Sync)
}
