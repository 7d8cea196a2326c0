package devicetrust

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/skyward-cloud/gatehouse/core"
	"github.com/skyward-cloud/gatehouse/ports"
)

// Manager validates and refreshes device trust. It is a thin layer in front
// of the identity backend's device records: the cookie proves nothing on its
// own, every skip-two-factor decision goes back to the backend.
type Manager struct {
	backend ports.IdentityBackend
	codec   *CookieCodec
	logger  *slog.Logger
}

// NewManager creates a device-trust manager.
func NewManager(backend ports.IdentityBackend, codec *CookieCodec) *Manager {
	return &Manager{
		backend: backend,
		codec:   codec,
		logger:  slog.Default().With("component", "devicetrust"),
	}
}

// Verify checks a presented cookie value for (username, domain). A non-nil
// trust means the device may skip two-factor. When the backend actively
// rejected the device (known record, bad token) the returned code is
// core.CodeDeviceRejected so the user can be told their trust was revoked
// rather than simply unrecognized.
func (m *Manager) Verify(ctx context.Context, username, domain, cookieValue string) (*core.DeviceTrust, core.ErrorCode) {
	trust, err := m.codec.Decode(cookieValue)
	if err != nil {
		m.logger.Debug("discarding malformed device cookie", "username", username)
		return nil, ""
	}

	trust.Username = username
	trust.Domain = domain

	switch err := m.backend.CheckDevice(ctx, *trust); {
	case err == nil:
		return trust, ""
	case errors.Is(err, core.ErrDeviceForbidden):
		m.logger.Info("device trust rejected", "username", username, "device_id", trust.DeviceID)
		return nil, core.CodeDeviceRejected
	case errors.Is(err, core.ErrDeviceNotFound):
		return nil, ""
	default:
		m.logger.Warn("device trust check failed", "username", username, "error", err)
		return nil, ""
	}
}

// Remember creates or refreshes the backend device record and returns the
// signed cookie value to set on the response. deviceID may be empty when the
// device is being remembered for the first time.
func (m *Manager) Remember(ctx context.Context, username, domain, deviceID string) (string, error) {
	trust, err := m.backend.RememberDevice(ctx, username, domain, deviceID)
	if err != nil {
		return "", fmt.Errorf("failed to remember device: %w", err)
	}

	value, err := m.codec.Encode(*trust)
	if err != nil {
		return "", fmt.Errorf("failed to sign device cookie: %w", err)
	}
	return value, nil
}
