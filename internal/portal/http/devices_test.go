package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/aussiebroadwan/wgportal/internal/portal/wireguard"
	"github.com/aussiebroadwan/wgportal/pkg/portalsdk"
	"github.com/stretchr/testify/require"
)

func TestDeviceLifecycle(t *testing.T) {
	env := newTestEnv(t, "10.0.0.0/24")
	alice := env.user(t, "alice", false)
	tok := env.token(t, alice)

	rec := env.do(t, http.MethodPost, "/v1/devices", tok, portalsdk.CreateDeviceRequest{Name: "laptop"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[portalsdk.CreateDeviceResponse](t, rec)
	require.Equal(t, "laptop", created.Name)
	require.Equal(t, "10.0.0.2", created.IPAddress)

	rec = env.do(t, http.MethodGet, "/v1/devices", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[portalsdk.DeviceListResponse](t, rec)
	require.Len(t, list.Devices, 1)
	require.Equal(t, created.DeviceID, list.Devices[0].ID)
	require.True(t, list.Devices[0].Synced)
	require.NotContains(t, rec.Body.String(), "private")

	rec = env.do(t, http.MethodGet, "/v1/devices/"+created.DeviceID, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dev := decode[portalsdk.Device](t, rec)
	require.Equal(t, "10.0.0.2", dev.IPAddress)
	require.True(t, dev.IsActive)

	rec = env.do(t, http.MethodGet, "/v1/devices/"+created.DeviceID+"/config", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="laptop.conf"`, rec.Header().Get("Content-Disposition"))
	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, "[Interface]\nPrivateKey = "))
	require.Contains(t, body, "Address = 10.0.0.2/32\n")
	require.Contains(t, body, "Endpoint = vpn.example.com:51820\n")

	rec = env.do(t, http.MethodDelete, "/v1/devices/"+created.DeviceID, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	del := decode[portalsdk.DeleteDeviceResponse](t, rec)
	require.True(t, del.DaemonSynced)

	rec = env.do(t, http.MethodGet, "/v1/devices/"+created.DeviceID, tok, nil)
	requireError(t, rec, http.StatusNotFound, portalsdk.ErrorCodeNotFound)
}

func TestDevicesScopedToOwner(t *testing.T) {
	env := newTestEnv(t, "10.0.0.0/24")
	aliceTok := env.token(t, env.user(t, "alice", false))
	bobTok := env.token(t, env.user(t, "bob", false))

	rec := env.do(t, http.MethodPost, "/v1/devices", aliceTok, portalsdk.CreateDeviceRequest{Name: "phone"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[portalsdk.CreateDeviceResponse](t, rec).DeviceID

	for _, path := range []string{"/v1/devices/" + id, "/v1/devices/" + id + "/config"} {
		rec = env.do(t, http.MethodGet, path, bobTok, nil)
		requireError(t, rec, http.StatusNotFound, portalsdk.ErrorCodeNotFound)
	}
	rec = env.do(t, http.MethodDelete, "/v1/devices/"+id, bobTok, nil)
	requireError(t, rec, http.StatusNotFound, portalsdk.ErrorCodeNotFound)

	// Bob's second device still gets the next free address.
	rec = env.do(t, http.MethodPost, "/v1/devices", bobTok, portalsdk.CreateDeviceRequest{Name: "phone"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "10.0.0.3", decode[portalsdk.CreateDeviceResponse](t, rec).IPAddress)
}

func TestDeviceErrors(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		env := newTestEnv(t, "10.0.0.0/24")
		rec := env.do(t, http.MethodGet, "/v1/devices", "", nil)
		requireError(t, rec, http.StatusUnauthorized, portalsdk.ErrorCodeInvalidToken)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	})

	t.Run("empty name", func(t *testing.T) {
		env := newTestEnv(t, "10.0.0.0/24")
		tok := env.token(t, env.user(t, "alice", false))
		rec := env.do(t, http.MethodPost, "/v1/devices", tok, portalsdk.CreateDeviceRequest{Name: "  "})
		requireError(t, rec, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest)
	})

	t.Run("attach failure", func(t *testing.T) {
		env := newTestEnv(t, "10.0.0.0/24")
		tok := env.token(t, env.user(t, "alice", false))
		env.sync.attachErr = errors.New("wg: no such device")

		rec := env.do(t, http.MethodPost, "/v1/devices", tok, portalsdk.CreateDeviceRequest{Name: "laptop"})
		requireError(t, rec, http.StatusBadGateway, portalsdk.ErrorCodeSyncFailed)
		require.NotContains(t, rec.Body.String(), "no such device")

		// The failed device was not kept.
		rec = env.do(t, http.MethodGet, "/v1/devices", tok, nil)
		require.Empty(t, decode[portalsdk.DeviceListResponse](t, rec).Devices)
	})

	t.Run("pool exhausted", func(t *testing.T) {
		// A /30 has exactly one client address next to the gateway.
		env := newTestEnv(t, "10.9.0.0/30")
		tok := env.token(t, env.user(t, "alice", false))

		rec := env.do(t, http.MethodPost, "/v1/devices", tok, portalsdk.CreateDeviceRequest{Name: "one"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.Equal(t, "10.9.0.2", decode[portalsdk.CreateDeviceResponse](t, rec).IPAddress)

		rec = env.do(t, http.MethodPost, "/v1/devices", tok, portalsdk.CreateDeviceRequest{Name: "two"})
		requireError(t, rec, http.StatusServiceUnavailable, portalsdk.ErrorCodePoolExhausted)
	})

	t.Run("duplicate public key", func(t *testing.T) {
		env := newTestEnv(t, "10.0.0.0/24")
		kp, err := wireguard.NativeKeyGen{}.Generate(context.Background())
		require.NoError(t, err)
		env.router.ProvisioningService.Keys = fixedKeys{kp: kp}
		tok := env.token(t, env.user(t, "alice", false))

		rec := env.do(t, http.MethodPost, "/v1/devices", tok, portalsdk.CreateDeviceRequest{Name: "laptop"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodPost, "/v1/devices", tok, portalsdk.CreateDeviceRequest{Name: "phone"})
		requireError(t, rec, http.StatusConflict, portalsdk.ErrorCodeConflict)
		resp := decode[portalsdk.ErrorResponse](t, rec)
		require.Equal(t, "Device key already registered", resp.ErrorDescription)
		require.NotContains(t, rec.Body.String(), "UNIQUE")
		require.NotContains(t, rec.Body.String(), "store:")
		require.NotContains(t, rec.Body.String(), kp.PublicKey)
	})

	t.Run("device limit", func(t *testing.T) {
		env := newTestEnv(t, "10.0.0.0/24")
		env.router.ProvisioningService.MaxDevicesPerUser = 1
		tok := env.token(t, env.user(t, "alice", false))

		rec := env.do(t, http.MethodPost, "/v1/devices", tok, portalsdk.CreateDeviceRequest{Name: "laptop"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodPost, "/v1/devices", tok, portalsdk.CreateDeviceRequest{Name: "phone"})
		requireError(t, rec, http.StatusConflict, portalsdk.ErrorCodeDeviceLimit)
		require.Equal(t, portalsdk.ErrDeviceLimit.StatusCode, rec.Code)
	})
}

type fixedKeys struct{ kp wireguard.KeyPair }

func (f fixedKeys) Generate(context.Context) (wireguard.KeyPair, error) { return f.kp, nil }

func TestDeleteDeviceDetachFailure(t *testing.T) {
	env := newTestEnv(t, "10.0.0.0/24")
	tok := env.token(t, env.user(t, "alice", false))

	rec := env.do(t, http.MethodPost, "/v1/devices", tok, portalsdk.CreateDeviceRequest{Name: "laptop"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[portalsdk.CreateDeviceResponse](t, rec).DeviceID

	env.sync.detachErr = wireguard.ErrExternalSync

	// The record goes regardless; the response says the interface was not updated.
	rec = env.do(t, http.MethodDelete, "/v1/devices/"+id, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, decode[portalsdk.DeleteDeviceResponse](t, rec).DaemonSynced)

	rec = env.do(t, http.MethodGet, "/v1/devices", tok, nil)
	require.Empty(t, decode[portalsdk.DeviceListResponse](t, rec).Devices)
}
