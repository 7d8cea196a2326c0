package core

import "time"

// Credentials carry what the user typed into the login form. The password is
// cleartext and must only ever live in the request or the short-TTL pending
// store; it is never hashed or persisted here.
type Credentials struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	Domain           string `json:"domain"`
	VerificationCode string `json:"verification_code,omitempty"`
}

// PendingCredential bridges the two phases of a two-factor login. It is
// stored under a one-time key and consumed exactly once.
type PendingCredential struct {
	Credentials
	CreatedAt time.Time `json:"created_at"`
}

// DeviceTrust asserts that a specific client device already passed
// two-factor verification for (Username, Domain). The record lives at the
// identity backend; the client holds DeviceID and DeviceToken in a signed
// cookie.
type DeviceTrust struct {
	DeviceID    string `json:"device_id"`
	DeviceToken string `json:"device_token"`
	Username    string `json:"username,omitempty"`
	Domain      string `json:"domain,omitempty"`
}

// Scope is the project/domain context a token is requested for.
type Scope struct {
	ProjectID  string
	DomainName string
}

// IdentityToken is a live grant at the identity service. Superseded tokens
// stay valid there until explicitly revoked.
type IdentityToken struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ProjectID   string    `json:"project_id,omitempty"`
	ProjectName string    `json:"project_name,omitempty"`
	Endpoint    string    `json:"endpoint"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AuthResult is a successful identity-backend authentication.
type AuthResult struct {
	Token            IdentityToken
	Username         string
	Domain           string
	Roles            []string
	AvailableRegions []string
}

// Session is the server-side record bound to one browser session. At most
// one IdentityToken is bound at any time; it is replaced on login and tenant
// switch and the session is destroyed on logout.
type Session struct {
	Token            IdentityToken `json:"token"`
	Username         string        `json:"username"`
	Domain           string        `json:"domain"`
	Roles            []string      `json:"roles,omitempty"`
	RegionEndpoint   string        `json:"region_endpoint"`
	RegionName       string        `json:"region_name,omitempty"`
	ServicesRegion   string        `json:"services_region,omitempty"`
	AvailableRegions []string      `json:"available_regions,omitempty"`
	LastActivity     int64         `json:"last_activity"`
}

// Authenticated reports whether the session has a bound identity token.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token.ID != ""
}
