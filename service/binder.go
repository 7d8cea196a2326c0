package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/skyward-cloud/gatehouse/core"
	"github.com/skyward-cloud/gatehouse/ports"
)

// Binder is the sole writer of session identity state. It converts an
// identity-backend authentication into the session record, issuing a fresh
// session ID on every bind and deleting the superseded record. Because the
// ID rotates, Bind must be the last state-mutating step of any flow that
// establishes or replaces identity; earlier session writes would land on the
// doomed record.
type Binder struct {
	sessions ports.SessionStore
	regions  map[string]string
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewBinder creates a binder. regions maps identity endpoints to display
// names; ttl caps the session lifetime (the bound token's expiry caps it
// further when shorter).
func NewBinder(sessions ports.SessionStore, regions map[string]string, ttl time.Duration) *Binder {
	return &Binder{
		sessions: sessions,
		regions:  regions,
		ttl:      ttl,
		now:      time.Now,
		logger:   slog.Default().With("component", "binder"),
	}
}

// Bind materializes the session record for a successful authentication and
// returns the new session ID.
func (b *Binder) Bind(ctx context.Context, oldSID string, res *core.AuthResult) (string, *core.Session, error) {
	session := &core.Session{
		Token:            res.Token,
		Username:         res.Username,
		Domain:           res.Domain,
		Roles:            res.Roles,
		RegionEndpoint:   res.Token.Endpoint,
		RegionName:       b.regions[res.Token.Endpoint],
		AvailableRegions: res.AvailableRegions,
		LastActivity:     b.now().Unix(),
	}

	sid := uuid.New().String()
	if err := b.sessions.Save(ctx, sid, session, b.sessionTTL(res.Token)); err != nil {
		return "", nil, fmt.Errorf("failed to save session: %w", err)
	}

	if oldSID != "" {
		if err := b.sessions.Delete(ctx, oldSID); err != nil {
			b.logger.Warn("could not delete superseded session", "error", err)
		}
	}

	return sid, session, nil
}

// SetServicesRegion updates the session's active services region in place,
// keeping the same session ID.
func (b *Binder) SetServicesRegion(ctx context.Context, sid string, session *core.Session, region string) error {
	session.ServicesRegion = region
	session.LastActivity = b.now().Unix()
	if err := b.sessions.Save(ctx, sid, session, b.sessionTTL(session.Token)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Destroy removes the session record.
func (b *Binder) Destroy(ctx context.Context, sid string) error {
	return b.sessions.Delete(ctx, sid)
}

func (b *Binder) sessionTTL(token core.IdentityToken) time.Duration {
	ttl := b.ttl
	if !token.ExpiresAt.IsZero() {
		if until := token.ExpiresAt.Sub(b.now()); until > 0 && until < ttl {
			ttl = until
		}
	}
	return ttl
}
