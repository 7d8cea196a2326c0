// Package devicetrust manages "remembered device" grants: the signed
// client-held cookie carrying {device_id, device_token} and the checks
// against the identity backend's device records.
package devicetrust

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/skyward-cloud/gatehouse/core"
)

// CookieName is the client-held signed cookie carrying the device grant.
const CookieName = "two-factor-auth"

// ErrInvalidCookie is returned when a device cookie fails signature or
// claims validation.
var ErrInvalidCookie = errors.New("invalid device cookie")

// cookieClaims are the signed contents of the device cookie. The device
// token is the secret the identity backend compares against its record; the
// signature only proves this service issued the cookie.
type cookieClaims struct {
	jwt.RegisteredClaims
	DeviceID    string `json:"device_id"`
	DeviceToken string `json:"device_token"`
}

// CookieCodec signs and verifies device cookies with an HS256 secret.
type CookieCodec struct {
	secret []byte
}

// NewCookieCodec creates a codec with the given signing secret.
func NewCookieCodec(secret []byte) *CookieCodec {
	return &CookieCodec{secret: secret}
}

// Encode serializes a device grant into a signed cookie value. The cookie
// itself never expires; trust lifetime is owned by the backend record.
func (c *CookieCodec) Encode(trust core.DeviceTrust) (string, error) {
	claims := cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  trust.Username,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		DeviceID:    trust.DeviceID,
		DeviceToken: trust.DeviceToken,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies a cookie value and returns the device grant it carries.
func (c *CookieCodec) Decode(value string) (*core.DeviceTrust, error) {
	token, err := jwt.ParseWithClaims(value, &cookieClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCookie
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCookie
	}

	claims, ok := token.Claims.(*cookieClaims)
	if !ok || claims.DeviceID == "" || claims.DeviceToken == "" {
		return nil, ErrInvalidCookie
	}

	return &core.DeviceTrust{
		DeviceID:    claims.DeviceID,
		DeviceToken: claims.DeviceToken,
		Username:    claims.Subject,
	}, nil
}
