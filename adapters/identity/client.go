// Package identity implements ports.IdentityBackend against a Keystone-style
// identity service: scoped token issuance (password and token methods), token
// revocation, and the two-factor extension endpoints for device trust.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/skyward-cloud/gatehouse/core"
	"github.com/skyward-cloud/gatehouse/ports"
)

const (
	subjectTokenHeader = "X-Subject-Token"
	authTokenHeader    = "X-Auth-Token"

	tokensPath    = "/auth/tokens"
	twoFactorPath = "/OS-TWO-FACTOR/two_factor_auth"
	devicesPath   = "/OS-TWO-FACTOR/devices"

	defaultTimeout = 15 * time.Second
)

// Client talks to the identity service over HTTP.
type Client struct {
	authURL string
	httpc   *http.Client
}

// NewClient creates a client for the identity service at authURL.
func NewClient(authURL string) *Client {
	return &Client{
		authURL: authURL,
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
}

var _ ports.IdentityBackend = (*Client)(nil)

// Authenticate performs a scoped password authentication. When the
// credentials carry a verification code the totp method is added alongside
// password, which is how the backend enforces its two-factor policy.
func (c *Client) Authenticate(ctx context.Context, creds core.Credentials, scope core.Scope) (*core.AuthResult, error) {
	req := authRequest{}
	req.Auth.Identity.Methods = []string{"password"}
	req.Auth.Identity.Password = &passwordMethod{
		User: userCredential{
			Name:     creds.Username,
			Domain:   domainRef{Name: creds.Domain},
			Password: creds.Password,
		},
	}
	if creds.VerificationCode != "" {
		req.Auth.Identity.Methods = append(req.Auth.Identity.Methods, "totp")
		req.Auth.Identity.TOTP = &totpMethod{
			User: userCredential{
				Name:     creds.Username,
				Domain:   domainRef{Name: creds.Domain},
				Passcode: creds.VerificationCode,
			},
		}
	}
	req.Auth.Scope = scopeBody(scope)

	return c.issueToken(ctx, c.authURL, req)
}

// Rescope exchanges an existing token for one scoped to another project,
// using the token itself as the bearer credential.
func (c *Client) Rescope(ctx context.Context, endpoint, tokenID string, scope core.Scope) (*core.AuthResult, error) {
	req := authRequest{}
	req.Auth.Identity.Methods = []string{"token"}
	req.Auth.Identity.Token = &tokenMethod{ID: tokenID}
	req.Auth.Scope = scopeBody(scope)

	return c.issueToken(ctx, endpoint, req)
}

// Revoke invalidates a token, authenticating with the token itself.
func (c *Client) Revoke(ctx context.Context, endpoint, tokenID string) error {
	target := versionedURL(endpoint) + tokensPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}
	httpReq.Header.Set(authTokenHeader, tokenID)
	httpReq.Header.Set(subjectTokenHeader, tokenID)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}
	defer drain(resp)

	if resp.StatusCode >= 400 {
		return statusError(resp.StatusCode)
	}
	return nil
}

// TwoFactorEnabled reports whether the user has two-factor enforcement
// enabled. The backend answers 204 for enabled and 404 for not enabled.
func (c *Client) TwoFactorEnabled(ctx context.Context, username, domain string) (bool, error) {
	query := url.Values{}
	query.Set("user_name", username)
	query.Set("domain_name", domain)
	target := versionedURL(c.authURL) + twoFactorPath + "?" + query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 400:
		return false, statusError(resp.StatusCode)
	default:
		return true, nil
	}
}

// CheckDevice validates a presented device-trust record.
func (c *Client) CheckDevice(ctx context.Context, trust core.DeviceTrust) error {
	query := url.Values{}
	query.Set("user_name", trust.Username)
	query.Set("domain_name", trust.Domain)
	query.Set("device_id", trust.DeviceID)
	query.Set("device_token", trust.DeviceToken)
	target := versionedURL(c.authURL) + devicesPath + "?" + query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusForbidden:
		return core.ErrDeviceForbidden
	case http.StatusNotFound:
		return core.ErrDeviceNotFound
	}
	if resp.StatusCode >= 400 {
		return statusError(resp.StatusCode)
	}
	return nil
}

// RememberDevice creates or refreshes a device-trust record.
func (c *Client) RememberDevice(ctx context.Context, username, domain, deviceID string) (*core.DeviceTrust, error) {
	body := deviceRequest{
		UserName:   username,
		DomainName: domain,
		DeviceID:   deviceID,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode device request: %w", err)
	}

	target := versionedURL(c.authURL) + devicesPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}
	defer drain(resp)

	if resp.StatusCode >= 400 {
		return nil, statusError(resp.StatusCode)
	}

	var device deviceResponse
	if err := json.NewDecoder(resp.Body).Decode(&device); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}

	return &core.DeviceTrust{
		DeviceID:    device.DeviceID,
		DeviceToken: device.DeviceToken,
		Username:    username,
		Domain:      domain,
	}, nil
}

// issueToken posts an auth request to endpoint and materializes the result.
func (c *Client) issueToken(ctx context.Context, endpoint string, req authRequest) (*core.AuthResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode auth request: %w", err)
	}

	target := versionedURL(endpoint) + tokensPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}
	defer drain(resp)

	if resp.StatusCode >= 400 {
		return nil, statusError(resp.StatusCode)
	}

	tokenID := resp.Header.Get(subjectTokenHeader)
	if tokenID == "" {
		return nil, fmt.Errorf("%w: missing subject token header", core.ErrBackendUnavailable)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}

	return buildAuthResult(tokenID, endpoint, body), nil
}

func buildAuthResult(tokenID, endpoint string, body tokenResponse) *core.AuthResult {
	token := body.Token
	roles := make([]string, 0, len(token.Roles))
	for _, role := range token.Roles {
		roles = append(roles, role.Name)
	}

	return &core.AuthResult{
		Token: core.IdentityToken{
			ID:          tokenID,
			UserID:      token.User.ID,
			ProjectID:   token.Project.ID,
			ProjectName: token.Project.Name,
			Endpoint:    endpoint,
			ExpiresAt:   token.ExpiresAt,
		},
		Username:         token.User.Name,
		Domain:           token.User.Domain.Name,
		Roles:            roles,
		AvailableRegions: catalogRegions(token.Catalog),
	}
}

// catalogRegions collects the distinct region names in the service catalog.
func catalogRegions(catalog []catalogEntry) []string {
	seen := make(map[string]struct{})
	for _, entry := range catalog {
		for _, ep := range entry.Endpoints {
			if ep.Region != "" {
				seen[ep.Region] = struct{}{}
			}
		}
	}
	regions := make([]string, 0, len(seen))
	for region := range seen {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}

// versionedURL appends the v3 path segment when the endpoint lacks one.
func versionedURL(endpoint string) string {
	trimmed := strings.TrimRight(endpoint, "/")
	if strings.HasSuffix(trimmed, "/v3") {
		return trimmed
	}
	return trimmed + "/v3"
}

func statusError(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return core.ErrInvalidCredentials
	case http.StatusForbidden:
		return core.ErrForbidden
	case http.StatusNotFound:
		return core.ErrNotFound
	default:
		return fmt.Errorf("%w: status %d", core.ErrBackendUnavailable, status)
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
