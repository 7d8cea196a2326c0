package service

import (
	"context"

	"github.com/skyward-cloud/gatehouse/core"
)

// Logout revokes the session's bound token if one exists, publishes the
// logout event and destroys the session record. Revocation is unconditional
// best effort; the session is torn down even when it fails.
func (f *AuthFlow) Logout(ctx context.Context, sid string, session *core.Session) {
	if session != nil {
		f.logger.Info("logging out user", "username", session.Username)

		if session.Token.ID != "" && session.RegionEndpoint != "" {
			f.tokens.Revoke(ctx, session.RegionEndpoint, session.Token.ID)
		}

		if f.events != nil {
			if err := f.events.PublishLogout(ctx, session.Username, session.Token.ID); err != nil {
				f.logger.Warn("could not publish logout event", "error", err)
			}
		}
	}

	if sid != "" {
		if err := f.binder.Destroy(ctx, sid); err != nil {
			f.logger.Warn("could not destroy session", "error", err)
		}
	}
}
