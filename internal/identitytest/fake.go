// Package identitytest provides a scripted in-memory identity backend for
// tests.
package identitytest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skyward-cloud/gatehouse/core"
	"github.com/skyward-cloud/gatehouse/ports"
)

// Fake implements ports.IdentityBackend with scripted behavior. Zero-value
// maps are allocated by New; fields may be mutated between calls to steer a
// scenario.
type Fake struct {
	// Passwords maps "username@domain" to the accepted password.
	Passwords map[string]string

	// TwoFactorUsers marks "username@domain" entries that require the
	// verification gate.
	TwoFactorUsers map[string]bool

	// VerificationCode, when set, is the only accepted verification code.
	VerificationCode string

	// Devices maps device IDs to their current device tokens.
	Devices map[string]string

	// Endpoint is stamped on issued tokens.
	Endpoint string

	// Regions returned with every auth result.
	Regions []string

	// Forced failures.
	AuthErr      error
	RescopeErr   error
	RevokeErr    error
	TwoFactorErr error

	// RevokedTokens records Revoke attempts in order, including failed ones.
	RevokedTokens []string

	mu     sync.Mutex
	issued int
}

// New creates an empty fake issuing tokens for endpoint.
func New(endpoint string) *Fake {
	return &Fake{
		Passwords:      make(map[string]string),
		TwoFactorUsers: make(map[string]bool),
		Devices:        make(map[string]string),
		Endpoint:       endpoint,
	}
}

var _ ports.IdentityBackend = (*Fake)(nil)

func key(username, domain string) string {
	return username + "@" + domain
}

// Authenticate validates the scripted password, and the verification code
// when one is both configured and presented.
func (f *Fake) Authenticate(ctx context.Context, creds core.Credentials, scope core.Scope) (*core.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.AuthErr != nil {
		return nil, f.AuthErr
	}

	password, ok := f.Passwords[key(creds.Username, creds.Domain)]
	if !ok || password != creds.Password {
		return nil, core.ErrInvalidCredentials
	}
	if creds.VerificationCode != "" && f.VerificationCode != "" && creds.VerificationCode != f.VerificationCode {
		return nil, core.ErrInvalidCredentials
	}

	return f.issue(creds.Username, creds.Domain, scope.ProjectID), nil
}

// Rescope issues a new token for the requested project.
func (f *Fake) Rescope(ctx context.Context, endpoint, tokenID string, scope core.Scope) (*core.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.RescopeErr != nil {
		return nil, f.RescopeErr
	}
	return f.issue("rescoped", "", scope.ProjectID), nil
}

// Revoke records the attempt and returns the scripted error, if any.
func (f *Fake) Revoke(ctx context.Context, endpoint, tokenID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.RevokedTokens = append(f.RevokedTokens, tokenID)
	return f.RevokeErr
}

// TwoFactorEnabled reports the scripted enforcement flag.
func (f *Fake) TwoFactorEnabled(ctx context.Context, username, domain string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.TwoFactorErr != nil {
		return false, f.TwoFactorErr
	}
	return f.TwoFactorUsers[key(username, domain)], nil
}

// CheckDevice validates a device grant against the scripted records.
func (f *Fake) CheckDevice(ctx context.Context, trust core.DeviceTrust) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	token, ok := f.Devices[trust.DeviceID]
	if !ok {
		return core.ErrDeviceNotFound
	}
	if token != trust.DeviceToken {
		return core.ErrDeviceForbidden
	}
	return nil
}

// RememberDevice creates or rolls a device record.
func (f *Fake) RememberDevice(ctx context.Context, username, domain, deviceID string) (*core.DeviceTrust, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if deviceID == "" {
		deviceID = uuid.New().String()
	}
	token := uuid.New().String()
	f.Devices[deviceID] = token

	return &core.DeviceTrust{
		DeviceID:    deviceID,
		DeviceToken: token,
		Username:    username,
		Domain:      domain,
	}, nil
}

// Issued reports how many tokens the fake has issued.
func (f *Fake) Issued() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issued
}

// issue mints a token result. Caller holds the lock.
func (f *Fake) issue(username, domain, projectID string) *core.AuthResult {
	f.issued++
	if projectID == "" {
		projectID = "proj-default"
	}
	return &core.AuthResult{
		Token: core.IdentityToken{
			ID:        fmt.Sprintf("token-%d", f.issued),
			UserID:    "uid-" + username,
			ProjectID: projectID,
			Endpoint:  f.Endpoint,
			ExpiresAt: time.Now().Add(time.Hour),
		},
		Username:         username,
		Domain:           domain,
		AvailableRegions: f.Regions,
	}
}
