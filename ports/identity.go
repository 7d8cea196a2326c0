package ports

import (
	"context"

	"github.com/skyward-cloud/gatehouse/core"
)

// IdentityBackend is the external identity service. It is the point of truth
// for credentials and tokens but an unreliable network peer; callers map its
// failures to user-visible error codes and never surface raw errors.
//
// Authentication failures surface as core.ErrInvalidCredentials,
// core.ErrForbidden or core.ErrNotFound; transport problems as
// core.ErrBackendUnavailable. CheckDevice distinguishes
// core.ErrDeviceNotFound (record gone) from core.ErrDeviceForbidden (record
// known, token rejected); the caller shows a different message for each.
type IdentityBackend interface {
	// Authenticate performs a scoped password authentication, including the
	// verification code when the credentials carry one.
	Authenticate(ctx context.Context, creds core.Credentials, scope core.Scope) (*core.AuthResult, error)

	// Rescope exchanges an existing token for one scoped to another project.
	Rescope(ctx context.Context, endpoint, tokenID string, scope core.Scope) (*core.AuthResult, error)

	// Revoke invalidates a token at the identity service.
	Revoke(ctx context.Context, endpoint, tokenID string) error

	// TwoFactorEnabled reports whether (username, domain) requires the
	// two-factor gate.
	TwoFactorEnabled(ctx context.Context, username, domain string) (bool, error)

	// CheckDevice validates a presented device-trust record.
	CheckDevice(ctx context.Context, trust core.DeviceTrust) error

	// RememberDevice creates or refreshes a device-trust record and returns
	// the new device token. deviceID may be empty for a new device.
	RememberDevice(ctx context.Context, username, domain, deviceID string) (*core.DeviceTrust, error)
}
