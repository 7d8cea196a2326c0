package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skyward-cloud/gatehouse/adapters/store"
	"github.com/skyward-cloud/gatehouse/core"
	"github.com/skyward-cloud/gatehouse/devicetrust"
	"github.com/skyward-cloud/gatehouse/internal/identitytest"
)

const testEndpoint = "https://id.example"

// recorder counts published events and optionally fails every publish.
type recorder struct {
	mu          sync.Mutex
	logins      int
	logouts     int
	switches    int
	failPublish bool
}

func (r *recorder) publish(counter *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failPublish {
		return errors.New("broker down")
	}
	*counter++
	return nil
}

func (r *recorder) PublishLogin(ctx context.Context, username, domain, tokenID string) error {
	return r.publish(&r.logins)
}

func (r *recorder) PublishLogout(ctx context.Context, username, tokenID string) error {
	return r.publish(&r.logouts)
}

func (r *recorder) PublishSwitch(ctx context.Context, username, oldTokenID, newTokenID, projectID string) error {
	return r.publish(&r.switches)
}

type env struct {
	flow     *AuthFlow
	backend  *identitytest.Fake
	cache    *store.MemoryCredentialCache
	sessions *store.MemorySessionStore
	codec    *devicetrust.CookieCodec
	events   *recorder
	now      time.Time
	mu       sync.Mutex
}

func (e *env) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *env) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

func newTestEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		backend: identitytest.New(testEndpoint),
		codec:   devicetrust.NewCookieCodec([]byte("test-secret")),
		events:  &recorder{},
		now:     time.Now(),
	}
	e.cache = store.NewMemoryCredentialCache(e.clock)
	e.sessions = store.NewMemorySessionStore(e.clock)

	e.backend.Passwords["alice@Default"] = "correct-password"
	e.backend.VerificationCode = "123456"
	e.backend.Regions = []string{"East", "West"}

	devices := devicetrust.NewManager(e.backend, e.codec)
	binder := NewBinder(e.sessions, map[string]string{testEndpoint: "East"}, 12*time.Hour)
	binder.now = e.clock
	tokens := NewTokenLifecycle(e.backend, nil)

	e.flow = NewAuthFlow(e.backend, e.cache, devices, binder, tokens, e.events, Config{
		DefaultDomain: "Default",
	})
	return e
}

func credentials() core.Credentials {
	return core.Credentials{Username: "alice", Password: "correct-password", Domain: "Default"}
}

func TestLoginWithoutTwoFactorEstablishesSession(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	out, err := e.flow.Login(ctx, credentials(), "", nil, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeSessionEstablished, out.Kind)
	require.NotEmpty(t, out.SessionID)
	require.Equal(t, "East", out.Session.RegionName)

	// No pending credential was ever created.
	require.Zero(t, e.cache.Len())

	loaded, err := e.sessions.Load(ctx, out.SessionID)
	require.NoError(t, err)
	require.Equal(t, out.Session.Token.ID, loaded.Token.ID)
	require.Equal(t, 1, e.events.logins)
}

func TestLoginDefaultsDomain(t *testing.T) {
	e := newTestEnv(t)

	creds := credentials()
	creds.Domain = ""
	out, err := e.flow.Login(context.Background(), creds, "", nil, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeSessionEstablished, out.Kind)
	require.Equal(t, "Default", out.Session.Domain)
}

func TestLoginRejectedByBackend(t *testing.T) {
	e := newTestEnv(t)

	creds := credentials()
	creds.Password = "wrong"
	out, err := e.flow.Login(context.Background(), creds, "", nil, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeAuthFailed, out.Kind)
	require.Equal(t, core.CodeInvalidCredentials, out.ErrorCode)
	require.Equal(t, "alice", out.Username)
	require.Zero(t, e.sessions.Len())
}

func TestLoginWithTwoFactorStashesCredentials(t *testing.T) {
	e := newTestEnv(t)
	e.backend.TwoFactorUsers["alice@Default"] = true
	ctx := context.Background()

	out, err := e.flow.Login(ctx, credentials(), "", nil, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeTwoFactorRequired, out.Kind)
	require.NotEmpty(t, out.TwoFactorKey)
	require.Empty(t, out.ErrorCode)

	// Exactly one pending credential, no session, and the identity backend
	// never saw the password.
	require.Equal(t, 1, e.cache.Len())
	require.Zero(t, e.sessions.Len())
	require.Zero(t, e.backend.Issued())

	pending, err := e.cache.Peek(ctx, out.TwoFactorKey)
	require.NoError(t, err)
	require.Equal(t, "alice", pending.Username)
	require.Equal(t, "Default", pending.Domain)
}

func TestTwoFactorCompletionEstablishesSessionOnce(t *testing.T) {
	e := newTestEnv(t)
	e.backend.TwoFactorUsers["alice@Default"] = true
	ctx := context.Background()

	login, err := e.flow.Login(ctx, credentials(), "", nil, "")
	require.NoError(t, err)

	out, err := e.flow.TwoFactorLogin(ctx, login.TwoFactorKey, "123456", false, "", nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeSessionEstablished, out.Kind)
	require.True(t, out.ClearDeviceCookie)
	require.Empty(t, out.DeviceCookie)

	_, err = e.sessions.Load(ctx, out.SessionID)
	require.NoError(t, err)

	// A spent key cannot establish a second session.
	replay, err := e.flow.TwoFactorLogin(ctx, login.TwoFactorKey, "123456", false, "", nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeVerificationExpired, replay.Kind)
	require.Equal(t, core.CodeVerificationExpired, replay.ErrorCode)
	require.Equal(t, 1, e.sessions.Len())
}

func TestTwoFactorKeyExpires(t *testing.T) {
	e := newTestEnv(t)
	e.backend.TwoFactorUsers["alice@Default"] = true
	ctx := context.Background()

	login, err := e.flow.Login(ctx, credentials(), "", nil, "")
	require.NoError(t, err)

	e.advance(121 * time.Second)

	out, err := e.flow.TwoFactorLogin(ctx, login.TwoFactorKey, "123456", false, "", nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeVerificationExpired, out.Kind)
}

func TestTwoFactorBadCodeDoesNotEstablishSession(t *testing.T) {
	e := newTestEnv(t)
	e.backend.TwoFactorUsers["alice@Default"] = true
	ctx := context.Background()

	login, err := e.flow.Login(ctx, credentials(), "", nil, "")
	require.NoError(t, err)

	out, err := e.flow.TwoFactorLogin(ctx, login.TwoFactorKey, "000000", false, "", nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeAuthFailed, out.Kind)
	require.Equal(t, "alice", out.Username)
	require.Zero(t, e.sessions.Len())
}

func TestTwoFactorRememberDeviceSetsCookie(t *testing.T) {
	e := newTestEnv(t)
	e.backend.TwoFactorUsers["alice@Default"] = true
	ctx := context.Background()

	login, err := e.flow.Login(ctx, credentials(), "", nil, "")
	require.NoError(t, err)

	out, err := e.flow.TwoFactorLogin(ctx, login.TwoFactorKey, "123456", true, "", nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeSessionEstablished, out.Kind)
	require.NotEmpty(t, out.DeviceCookie)
	require.False(t, out.ClearDeviceCookie)

	trust, err := e.codec.Decode(out.DeviceCookie)
	require.NoError(t, err)
	require.Equal(t, e.backend.Devices[trust.DeviceID], trust.DeviceToken)
}

func TestTrustedDeviceSkipsTwoFactor(t *testing.T) {
	e := newTestEnv(t)
	e.backend.TwoFactorUsers["alice@Default"] = true
	e.backend.Devices["dev-1"] = "tok-1"
	ctx := context.Background()

	cookie, err := e.codec.Encode(core.DeviceTrust{DeviceID: "dev-1", DeviceToken: "tok-1"})
	require.NoError(t, err)

	out, err := e.flow.Login(ctx, credentials(), "", nil, cookie)
	require.NoError(t, err)
	require.Equal(t, OutcomeSessionEstablished, out.Kind)
	require.Zero(t, e.cache.Len())

	// Trust was refreshed: a new cookie with a rolled device token.
	require.NotEmpty(t, out.DeviceCookie)
	trust, err := e.codec.Decode(out.DeviceCookie)
	require.NoError(t, err)
	require.Equal(t, "dev-1", trust.DeviceID)
	require.NotEqual(t, "tok-1", trust.DeviceToken)
}

func TestTamperedDeviceTokenFallsBackToTwoFactor(t *testing.T) {
	e := newTestEnv(t)
	e.backend.TwoFactorUsers["alice@Default"] = true
	e.backend.Devices["dev-1"] = "tok-1"
	ctx := context.Background()

	cookie, err := e.codec.Encode(core.DeviceTrust{DeviceID: "dev-1", DeviceToken: "forged"})
	require.NoError(t, err)

	out, err := e.flow.Login(ctx, credentials(), "", nil, cookie)
	require.NoError(t, err)
	require.Equal(t, OutcomeTwoFactorRequired, out.Kind)
	require.Equal(t, core.CodeDeviceRejected, out.ErrorCode)
	require.Zero(t, e.sessions.Len())
}

func TestUnknownDeviceFallsBackWithoutErrorCode(t *testing.T) {
	e := newTestEnv(t)
	e.backend.TwoFactorUsers["alice@Default"] = true
	ctx := context.Background()

	cookie, err := e.codec.Encode(core.DeviceTrust{DeviceID: "gone", DeviceToken: "tok"})
	require.NoError(t, err)

	out, err := e.flow.Login(ctx, credentials(), "", nil, cookie)
	require.NoError(t, err)
	require.Equal(t, OutcomeTwoFactorRequired, out.Kind)
	require.Empty(t, out.ErrorCode)
}

func TestReLoginRevokesPriorToken(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	first, err := e.flow.Login(ctx, credentials(), "", nil, "")
	require.NoError(t, err)

	second, err := e.flow.Login(ctx, credentials(), first.SessionID, first.Session, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeSessionEstablished, second.Kind)

	require.Equal(t, []string{first.Session.Token.ID}, e.backend.RevokedTokens)

	// The superseded session record is gone.
	_, err = e.sessions.Load(ctx, first.SessionID)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestBackendOutageSurfacesAsAuthFailure(t *testing.T) {
	e := newTestEnv(t)
	e.backend.TwoFactorErr = core.ErrBackendUnavailable

	out, err := e.flow.Login(context.Background(), credentials(), "", nil, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeAuthFailed, out.Kind)
	require.Equal(t, core.CodeInvalidCredentials, out.ErrorCode)
}
