package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/skyward-cloud/gatehouse/core"
)

// Login runs the primary login workflow. prior is the requester's current
// session, if any (its token is revoked once the new identity is bound);
// deviceCookie is the raw signed device-trust cookie value, empty when the
// client presented none.
//
// The identity backend is not consulted for authentication when the
// two-factor gate applies: the credentials are stashed under a one-time key
// and the caller redirects to the verification step.
func (f *AuthFlow) Login(ctx context.Context, creds core.Credentials, priorSID string, prior *core.Session, deviceCookie string) (*LoginOutcome, error) {
	if creds.Domain == "" {
		creds.Domain = f.defaultDomain
	}

	var trusted *core.DeviceTrust
	var deviceCode core.ErrorCode
	if deviceCookie != "" {
		trusted, deviceCode = f.devices.Verify(ctx, creds.Username, creds.Domain, deviceCookie)
	}

	enabled, err := f.backend.TwoFactorEnabled(ctx, creds.Username, creds.Domain)
	if err != nil {
		// Backend unavailability surfaces as a normal authentication
		// failure, never as a raw error.
		f.logger.Warn("two-factor lookup failed", "username", creds.Username, "error", err)
		return &LoginOutcome{
			Kind:      OutcomeAuthFailed,
			ErrorCode: core.CodeInvalidCredentials,
			Username:  creds.Username,
		}, nil
	}

	if enabled && trusted == nil {
		key, err := f.cache.Put(ctx, creds, f.credentialTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to stash pending credentials: %w", err)
		}
		return &LoginOutcome{
			Kind:         OutcomeTwoFactorRequired,
			TwoFactorKey: key,
			ErrorCode:    deviceCode,
		}, nil
	}

	res, err := f.backend.Authenticate(ctx, creds, core.Scope{DomainName: creds.Domain})
	if err != nil {
		f.logger.Info("login rejected", "username", creds.Username, "error", err)
		return &LoginOutcome{
			Kind:      OutcomeAuthFailed,
			ErrorCode: core.CodeInvalidCredentials,
			Username:  creds.Username,
		}, nil
	}

	out := &LoginOutcome{Kind: OutcomeSessionEstablished}

	if trusted != nil {
		// Trust was just validated against the backend; roll the device
		// token forward so the cookie stays fresh.
		value, err := f.devices.Remember(ctx, creds.Username, creds.Domain, trusted.DeviceID)
		if err != nil {
			f.logger.Warn("could not refresh device trust", "username", creds.Username, "error", err)
		} else {
			out.DeviceCookie = value
		}
	}

	return f.establish(ctx, out, priorSID, prior, res)
}

// TwoFactorLogin completes a pending login. key is the one-time cache key
// from the `k` parameter; username and domain come from the stashed record,
// never from request input.
func (f *AuthFlow) TwoFactorLogin(ctx context.Context, key, code string, rememberDevice bool, priorSID string, prior *core.Session) (*LoginOutcome, error) {
	if key == "" {
		return &LoginOutcome{
			Kind:      OutcomeVerificationExpired,
			ErrorCode: core.CodeVerificationExpired,
		}, nil
	}

	pending, err := f.cache.Consume(ctx, key)
	if err != nil {
		if errors.Is(err, core.ErrKeyNotFound) {
			return &LoginOutcome{
				Kind:      OutcomeVerificationExpired,
				ErrorCode: core.CodeVerificationExpired,
			}, nil
		}
		return nil, fmt.Errorf("failed to consume pending credentials: %w", err)
	}

	creds := pending.Credentials
	creds.VerificationCode = code

	res, err := f.backend.Authenticate(ctx, creds, core.Scope{DomainName: creds.Domain})
	if err != nil {
		f.logger.Info("two-factor verification rejected", "username", creds.Username, "error", err)
		return &LoginOutcome{
			Kind:      OutcomeAuthFailed,
			ErrorCode: core.CodeInvalidCredentials,
			Username:  creds.Username,
		}, nil
	}

	out := &LoginOutcome{Kind: OutcomeSessionEstablished}

	if rememberDevice {
		value, err := f.devices.Remember(ctx, creds.Username, creds.Domain, "")
		if err != nil {
			f.logger.Warn("could not remember device", "username", creds.Username, "error", err)
			out.ClearDeviceCookie = true
		} else {
			out.DeviceCookie = value
		}
	} else {
		out.ClearDeviceCookie = true
	}

	return f.establish(ctx, out, priorSID, prior, res)
}

// establish binds the new session and revokes the token a prior session had
// bound, if any. The bind happens first so the old grant is only dropped
// once the new identity is durably in place.
func (f *AuthFlow) establish(ctx context.Context, out *LoginOutcome, priorSID string, prior *core.Session, res *core.AuthResult) (*LoginOutcome, error) {
	sid, session, err := f.binder.Bind(ctx, priorSID, res)
	if err != nil {
		return nil, err
	}
	out.SessionID = sid
	out.Session = session

	if prior.Authenticated() && prior.Token.ID != res.Token.ID {
		f.tokens.Revoke(ctx, prior.RegionEndpoint, prior.Token.ID)
	}

	f.publishLogin(ctx, res)
	return out, nil
}
