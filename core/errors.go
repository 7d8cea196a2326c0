package core

import "errors"

var (
	// ErrInvalidCredentials is returned when the identity backend rejects
	// the supplied username, password or verification code.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden is returned when the identity backend denies the request.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when the identity backend has no matching record.
	ErrNotFound = errors.New("not found")

	// ErrBackendUnavailable is returned on transport failures or unexpected
	// responses from the identity backend.
	ErrBackendUnavailable = errors.New("identity backend unavailable")

	// ErrDeviceNotFound is returned when a presented device-trust record no
	// longer exists at the identity backend.
	ErrDeviceNotFound = errors.New("device not recognized")

	// ErrDeviceForbidden is returned when the device is known but the
	// presented device token is invalid or revoked.
	ErrDeviceForbidden = errors.New("device trust rejected")

	// ErrKeyNotFound is returned when a pending-credential key has expired,
	// was already consumed, or never existed.
	ErrKeyNotFound = errors.New("pending credential not found")

	// ErrNotAuthenticated is returned when an operation requires a bound
	// session token and none exists.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrStoreOperationFailed is returned when a cache or session store
	// operation fails.
	ErrStoreOperationFailed = errors.New("store operation failed")
)

// ErrorCode is one of the fixed user-visible login error codes. Raw backend
// errors never reach the user; only these do.
type ErrorCode string

const (
	CodeInvalidCredentials  ErrorCode = "invalid-credentials"
	CodeVerificationExpired ErrorCode = "verification-expired"
	CodeDeviceRejected      ErrorCode = "device-rejected"
)

// LoginErrorMessages maps error codes to the text shown on the login form.
var LoginErrorMessages = map[ErrorCode]string{
	CodeInvalidCredentials:  "Invalid user name, password or verification code.",
	CodeVerificationExpired: "Authentication time expired, please authenticate again.",
	CodeDeviceRejected:      "Something went wrong when verifying your device, please provide a code again.",
}
