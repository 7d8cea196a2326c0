// Package service implements the authentication workflows: primary login,
// two-factor completion, tenant and region switch, and logout. Each workflow
// returns an explicit outcome value the transport layer translates into
// redirects and cookies; no step communicates through ambient state.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/skyward-cloud/gatehouse/core"
	"github.com/skyward-cloud/gatehouse/devicetrust"
	"github.com/skyward-cloud/gatehouse/ports"
)

// DefaultCredentialTTL bounds how long pending two-factor credentials live.
const DefaultCredentialTTL = 120 * time.Second

// Config carries the workflow knobs.
type Config struct {
	// DefaultDomain is used when the login form omits a domain.
	DefaultDomain string

	// CredentialTTL is the pending-credential lifetime. Zero means
	// DefaultCredentialTTL.
	CredentialTTL time.Duration
}

// AuthFlow composes the authentication workflows from the injected ports.
type AuthFlow struct {
	backend ports.IdentityBackend
	cache   ports.CredentialCache
	devices *devicetrust.Manager
	binder  *Binder
	tokens  *TokenLifecycle
	events  ports.EventPublisher

	defaultDomain string
	credentialTTL time.Duration
	logger        *slog.Logger
}

// NewAuthFlow creates the workflow service. events may be nil when no
// publisher is deployed.
func NewAuthFlow(
	backend ports.IdentityBackend,
	cache ports.CredentialCache,
	devices *devicetrust.Manager,
	binder *Binder,
	tokens *TokenLifecycle,
	events ports.EventPublisher,
	cfg Config,
) *AuthFlow {
	if cfg.CredentialTTL <= 0 {
		cfg.CredentialTTL = DefaultCredentialTTL
	}
	return &AuthFlow{
		backend:       backend,
		cache:         cache,
		devices:       devices,
		binder:        binder,
		tokens:        tokens,
		events:        events,
		defaultDomain: cfg.DefaultDomain,
		credentialTTL: cfg.CredentialTTL,
		logger:        slog.Default().With("component", "authflow"),
	}
}

// OutcomeKind discriminates LoginOutcome values.
type OutcomeKind int

const (
	// OutcomeSessionEstablished: the session is bound; set the session
	// cookie and redirect to the post-login destination.
	OutcomeSessionEstablished OutcomeKind = iota

	// OutcomeTwoFactorRequired: credentials are stashed; redirect to the
	// two-factor step with the one-time key.
	OutcomeTwoFactorRequired

	// OutcomeAuthFailed: the backend rejected the credentials; re-render
	// the form with the error code.
	OutcomeAuthFailed

	// OutcomeVerificationExpired: the one-time key is missing, expired or
	// already spent; restart from the primary login.
	OutcomeVerificationExpired
)

// LoginOutcome is the explicit result of a login or verification step.
type LoginOutcome struct {
	Kind OutcomeKind

	// Set when Kind is OutcomeSessionEstablished.
	SessionID string
	Session   *core.Session

	// Set when Kind is OutcomeTwoFactorRequired.
	TwoFactorKey string

	// ErrorCode is the user-visible code for failure outcomes, and on
	// OutcomeTwoFactorRequired the pending device-rejection code to round-trip.
	ErrorCode core.ErrorCode

	// Username for form prefill after a failure.
	Username string

	// DeviceCookie, when non-empty, is a signed cookie value to set on the
	// response. ClearDeviceCookie requests removal of a stale cookie; the
	// two are mutually exclusive.
	DeviceCookie      string
	ClearDeviceCookie bool
}

// publishLogin emits the login event, best effort.
func (f *AuthFlow) publishLogin(ctx context.Context, res *core.AuthResult) {
	if f.events == nil {
		return
	}
	if err := f.events.PublishLogin(ctx, res.Username, res.Domain, res.Token.ID); err != nil {
		f.logger.Warn("could not publish login event", "error", err)
	}
}
