package devicetrust

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skyward-cloud/gatehouse/core"
	"github.com/skyward-cloud/gatehouse/internal/identitytest"
)

func newTestManager(t *testing.T) (*Manager, *identitytest.Fake, *CookieCodec) {
	t.Helper()

	backend := identitytest.New("https://id.example")
	codec := NewCookieCodec([]byte("test-secret"))
	return NewManager(backend, codec), backend, codec
}

func TestManagerVerifyTrustedDevice(t *testing.T) {
	manager, backend, codec := newTestManager(t)
	ctx := context.Background()

	backend.Devices["dev-1"] = "tok-1"
	value, err := codec.Encode(core.DeviceTrust{DeviceID: "dev-1", DeviceToken: "tok-1"})
	require.NoError(t, err)

	trust, code := manager.Verify(ctx, "alice", "Default", value)
	require.NotNil(t, trust)
	require.Empty(t, code)
	require.Equal(t, "dev-1", trust.DeviceID)
}

func TestManagerVerifyUnknownDevice(t *testing.T) {
	manager, _, codec := newTestManager(t)
	ctx := context.Background()

	value, err := codec.Encode(core.DeviceTrust{DeviceID: "gone", DeviceToken: "tok-1"})
	require.NoError(t, err)

	trust, code := manager.Verify(ctx, "alice", "Default", value)
	require.Nil(t, trust)
	require.Empty(t, code)
}

func TestManagerVerifyTamperedTokenIsRejected(t *testing.T) {
	manager, backend, codec := newTestManager(t)
	ctx := context.Background()

	backend.Devices["dev-1"] = "tok-1"
	value, err := codec.Encode(core.DeviceTrust{DeviceID: "dev-1", DeviceToken: "wrong"})
	require.NoError(t, err)

	trust, code := manager.Verify(ctx, "alice", "Default", value)
	require.Nil(t, trust)
	require.Equal(t, core.CodeDeviceRejected, code)
}

func TestManagerVerifyMalformedCookie(t *testing.T) {
	manager, _, _ := newTestManager(t)

	trust, code := manager.Verify(context.Background(), "alice", "Default", "garbage")
	require.Nil(t, trust)
	require.Empty(t, code)
}

func TestManagerRememberIssuesDecodableCookie(t *testing.T) {
	manager, backend, codec := newTestManager(t)
	ctx := context.Background()

	value, err := manager.Remember(ctx, "alice", "Default", "")
	require.NoError(t, err)

	trust, err := codec.Decode(value)
	require.NoError(t, err)
	require.Equal(t, backend.Devices[trust.DeviceID], trust.DeviceToken)

	// Refreshing rolls the token for the same device.
	refreshed, err := manager.Remember(ctx, "alice", "Default", trust.DeviceID)
	require.NoError(t, err)

	rolled, err := codec.Decode(refreshed)
	require.NoError(t, err)
	require.Equal(t, trust.DeviceID, rolled.DeviceID)
	require.NotEqual(t, trust.DeviceToken, rolled.DeviceToken)
}
