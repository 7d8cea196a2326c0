package service

import (
	"context"

	"github.com/skyward-cloud/gatehouse/core"
)

// SwitchOutcome reports the result of a tenant switch. When Switched is
// false the session is exactly as it was.
type SwitchOutcome struct {
	SessionID string
	Session   *core.Session
	Switched  bool
}

// Switch re-scopes the session's token to another project. On backend
// failure the session keeps its existing token and no revocation happens; on
// success the superseded token is revoked once the new one exists, and the
// session is rebound.
func (f *AuthFlow) Switch(ctx context.Context, sid string, session *core.Session, tenantID string) (*SwitchOutcome, error) {
	f.logger.Debug("switching project", "username", session.Username, "project_id", tenantID)

	res, err := f.backend.Rescope(ctx, session.RegionEndpoint, session.Token.ID, core.Scope{ProjectID: tenantID})
	if err != nil {
		f.logger.Warn("project switch failed", "username", session.Username, "error", err)
		return &SwitchOutcome{SessionID: sid, Session: session, Switched: false}, nil
	}

	oldToken := session.Token
	oldEndpoint := session.RegionEndpoint
	if oldToken.ID != "" && oldToken.ID != res.Token.ID {
		f.tokens.Revoke(ctx, oldEndpoint, oldToken.ID)
	}

	newSID, newSession, err := f.binder.Bind(ctx, sid, res)
	if err != nil {
		return nil, err
	}

	if f.events != nil {
		if err := f.events.PublishSwitch(ctx, res.Username, oldToken.ID, res.Token.ID, tenantID); err != nil {
			f.logger.Warn("could not publish switch event", "error", err)
		}
	}

	f.logger.Info("project switch successful", "username", res.Username, "project_id", tenantID)
	return &SwitchOutcome{SessionID: newSID, Session: newSession, Switched: true}, nil
}

// SwitchRegion switches the session's active services region. The region
// must be among the regions available to the scoped project; otherwise the
// session is left unchanged and no error is surfaced.
func (f *AuthFlow) SwitchRegion(ctx context.Context, sid string, session *core.Session, regionName string) (*core.Session, bool, error) {
	available := false
	for _, region := range session.AvailableRegions {
		if region == regionName {
			available = true
			break
		}
	}
	if !available {
		f.logger.Debug("ignoring unavailable services region", "username", session.Username, "region", regionName)
		return session, false, nil
	}

	if err := f.binder.SetServicesRegion(ctx, sid, session, regionName); err != nil {
		return nil, false, err
	}

	f.logger.Debug("switched services region", "username", session.Username, "region", regionName)
	return session, true, nil
}
