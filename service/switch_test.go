package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skyward-cloud/gatehouse/core"
)

func establishedSession(t *testing.T, e *env) (string, *core.Session) {
	t.Helper()

	out, err := e.flow.Login(context.Background(), credentials(), "", nil, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeSessionEstablished, out.Kind)
	return out.SessionID, out.Session
}

func TestSwitchRevokesOldTokenAndRebinds(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sid, session := establishedSession(t, e)
	oldToken := session.Token.ID

	out, err := e.flow.Switch(ctx, sid, session, "proj-2")
	require.NoError(t, err)
	require.True(t, out.Switched)
	require.NotEqual(t, sid, out.SessionID)
	require.Equal(t, "proj-2", out.Session.Token.ProjectID)
	require.NotEqual(t, oldToken, out.Session.Token.ID)

	// Exactly the superseded token was revoked, exactly once.
	require.Equal(t, []string{oldToken}, e.backend.RevokedTokens)
	require.Equal(t, 1, e.events.switches)

	// The old session ID no longer resolves; the new one does.
	_, err = e.sessions.Load(ctx, sid)
	require.ErrorIs(t, err, core.ErrNotFound)
	loaded, err := e.sessions.Load(ctx, out.SessionID)
	require.NoError(t, err)
	require.Equal(t, out.Session.Token.ID, loaded.Token.ID)
}

func TestSwitchFailureLeavesSessionUntouched(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sid, session := establishedSession(t, e)
	e.backend.RescopeErr = core.ErrForbidden

	out, err := e.flow.Switch(ctx, sid, session, "proj-2")
	require.NoError(t, err)
	require.False(t, out.Switched)
	require.Equal(t, sid, out.SessionID)
	require.Same(t, session, out.Session)

	// No revocation, no event, session record intact.
	require.Empty(t, e.backend.RevokedTokens)
	require.Zero(t, e.events.switches)
	loaded, err := e.sessions.Load(ctx, sid)
	require.NoError(t, err)
	require.Equal(t, session.Token.ID, loaded.Token.ID)
}

func TestSwitchRegion(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sid, session := establishedSession(t, e)

	updated, ok, err := e.flow.SwitchRegion(ctx, sid, session, "West")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "West", updated.ServicesRegion)

	// Same session ID, updated record.
	loaded, err := e.sessions.Load(ctx, sid)
	require.NoError(t, err)
	require.Equal(t, "West", loaded.ServicesRegion)
}

func TestSwitchRegionUnavailableIsIgnored(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sid, session := establishedSession(t, e)

	updated, ok, err := e.flow.SwitchRegion(ctx, sid, session, "Mars")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, updated.ServicesRegion)

	loaded, err := e.sessions.Load(ctx, sid)
	require.NoError(t, err)
	require.Empty(t, loaded.ServicesRegion)
}

func TestLogoutRevokesAndDestroys(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sid, session := establishedSession(t, e)

	e.flow.Logout(ctx, sid, session)

	require.Equal(t, []string{session.Token.ID}, e.backend.RevokedTokens)
	require.Equal(t, 1, e.events.logouts)
	_, err := e.sessions.Load(ctx, sid)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestLogoutDestroysSessionEvenWhenRevocationFails(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sid, session := establishedSession(t, e)
	e.backend.RevokeErr = core.ErrBackendUnavailable
	e.events.failPublish = true

	e.flow.Logout(ctx, sid, session)

	// The attempt was made, and the session is gone regardless.
	require.Equal(t, []string{session.Token.ID}, e.backend.RevokedTokens)
	_, err := e.sessions.Load(ctx, sid)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestLogoutWithoutSessionIsANoOp(t *testing.T) {
	e := newTestEnv(t)

	e.flow.Logout(context.Background(), "", nil)

	require.Empty(t, e.backend.RevokedTokens)
	require.Zero(t, e.events.logouts)
}
