package http

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/skyward-cloud/gatehouse/core"
	"github.com/skyward-cloud/gatehouse/devicetrust"
	"github.com/skyward-cloud/gatehouse/ports"
	"github.com/skyward-cloud/gatehouse/service"
)

const (
	// LoginPath and TwoFactorPath are the canonical form locations used in
	// redirects between the two login phases.
	LoginPath     = "/auth/login"
	TwoFactorPath = "/auth/two_factor"

	servicesRegionCookie = "services_region"

	deviceCookieMaxAge = 365 * 24 * 60 * 60
)

// AuthHandlers contains the HTTP handlers for the authentication endpoints.
type AuthHandlers struct {
	flow     *service.AuthFlow
	cache    ports.CredentialCache
	redirect service.RedirectPolicy
	regions  map[string]string
	secure   bool
}

// NewAuthHandlers creates the handlers. cache is only used to peek at the
// pending record when rendering the verification form; consumption happens
// inside the workflow. regions maps identity endpoints to display names for
// the login form's region choices.
func NewAuthHandlers(flow *service.AuthFlow, cache ports.CredentialCache, redirect service.RedirectPolicy, regions map[string]string, secureCookies bool) *AuthHandlers {
	return &AuthHandlers{
		flow:     flow,
		cache:    cache,
		redirect: redirect,
		regions:  regions,
		secure:   secureCookies,
	}
}

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
	Domain   string `form:"domain"`
	Region   string `form:"region"`
}

type twoFactorForm struct {
	Code           string `form:"verification_code" binding:"required"`
	RememberDevice bool   `form:"remember_device"`
}

// LoginForm renders the login form descriptor.
func (h *AuthHandlers) LoginForm(c *gin.Context) {
	// Re-visiting the login page while logged in is idempotent unless a
	// redirect target asks for a page needing different permissions.
	if _, _, ok := currentSession(c); ok && c.Query("next") == "" {
		c.Redirect(http.StatusFound, h.redirect.Fallback)
		return
	}

	resp := gin.H{"regions": h.regions}

	if code := core.ErrorCode(c.Query("error_code")); code != "" {
		if msg, ok := core.LoginErrorMessages[code]; ok {
			resp["error_code"] = string(code)
			resp["error"] = msg
		}
		if user := c.Query("user"); user != "" {
			resp["username"] = user
		}
	}

	// Preselect a requested region when it names a configured region other
	// than the session's current one.
	if requested := c.Query("region"); requested != "" {
		if _, ok := h.regions[requested]; ok {
			resp["region"] = requested
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Login handles the login form submission.
func (h *AuthHandlers) Login(c *gin.Context) {
	sid, session, authenticated := currentSession(c)
	next := h.nextParam(c)

	if authenticated && next == "" {
		c.Redirect(http.StatusFound, h.redirect.Fallback)
		return
	}

	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	creds := core.Credentials{
		Username: form.Username,
		Password: form.Password,
		Domain:   form.Domain,
	}
	deviceCookie, _ := c.Cookie(devicetrust.CookieName)

	out, err := h.flow.Login(c.Request.Context(), creds, sid, session, deviceCookie)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication service unavailable"})
		return
	}

	switch out.Kind {
	case service.OutcomeTwoFactorRequired:
		c.Redirect(http.StatusFound, h.twoFactorURL(out, next))

	case service.OutcomeAuthFailed:
		h.renderLoginError(c, out)

	default:
		h.finishLogin(c, out, next)
	}
}

// TwoFactorForm renders the verification form descriptor for a pending key.
func (h *AuthHandlers) TwoFactorForm(c *gin.Context) {
	if _, _, ok := currentSession(c); ok && c.Query("next") == "" {
		c.Redirect(http.StatusFound, h.redirect.Fallback)
		return
	}

	key := c.Query("k")
	if key == "" {
		h.redirectExpired(c)
		return
	}
	if _, err := h.cache.Peek(c.Request.Context(), key); err != nil {
		h.redirectExpired(c)
		return
	}

	resp := gin.H{"k": key}
	if next := c.Query("next"); next != "" {
		resp["next"] = next
	}
	if clientID := c.Query("client_id"); clientID != "" {
		resp["client_id"] = clientID
	}
	if code := core.ErrorCode(c.Query("error_code")); code != "" {
		if msg, ok := core.LoginErrorMessages[code]; ok {
			resp["error_code"] = string(code)
			resp["error"] = msg
		}
	}

	c.JSON(http.StatusOK, resp)
}

// TwoFactor handles the verification form submission.
func (h *AuthHandlers) TwoFactor(c *gin.Context) {
	sid, session, _ := currentSession(c)
	next := h.nextParam(c)

	var form twoFactorForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	out, err := h.flow.TwoFactorLogin(c.Request.Context(), c.Query("k"), form.Code, form.RememberDevice, sid, session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication service unavailable"})
		return
	}

	switch out.Kind {
	case service.OutcomeVerificationExpired:
		h.redirectExpired(c)

	case service.OutcomeAuthFailed:
		// Back to the primary login with the code and username; no session
		// is established.
		query := url.Values{}
		query.Set("error_code", string(out.ErrorCode))
		if out.Username != "" {
			query.Set("user", out.Username)
		}
		c.Redirect(http.StatusFound, LoginPath+"?"+query.Encode())

	default:
		h.finishLogin(c, out, next)
	}
}

// Switch switches the session to another project.
func (h *AuthHandlers) Switch(c *gin.Context) {
	sid, session, _ := currentSession(c)

	out, err := h.flow.Switch(c.Request.Context(), sid, session, c.Param("tenant_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "switch failed"})
		return
	}

	if out.Switched && out.SessionID != sid {
		h.setSessionCookie(c, out.SessionID)
	}

	c.Redirect(http.StatusFound, h.redirect.Resolve(h.nextParam(c), c.Request.Host))
}

// SwitchRegion switches the session's active services region.
func (h *AuthHandlers) SwitchRegion(c *gin.Context) {
	sid, session, _ := currentSession(c)

	updated, _, err := h.flow.SwitchRegion(c.Request.Context(), sid, session, c.Param("region_name"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "region switch failed"})
		return
	}

	if updated.ServicesRegion != "" {
		c.SetCookie(servicesRegionCookie, updated.ServicesRegion, deviceCookieMaxAge, "/", "", h.secure, false)
	}

	c.Redirect(http.StatusFound, h.redirect.Resolve(h.nextParam(c), c.Request.Host))
}

// Logout tears the session down and redirects to the login page. The session
// cookie is cleared even when revocation fails.
func (h *AuthHandlers) Logout(c *gin.Context) {
	sid, session, _ := currentSession(c)

	h.flow.Logout(c.Request.Context(), sid, session)

	c.SetCookie(SessionCookie, "", -1, "/", "", h.secure, true)
	c.Redirect(http.StatusFound, LoginPath)
}

// finishLogin applies a session-established outcome to the response.
func (h *AuthHandlers) finishLogin(c *gin.Context, out *service.LoginOutcome, next string) {
	h.setSessionCookie(c, out.SessionID)

	if out.DeviceCookie != "" {
		c.SetCookie(devicetrust.CookieName, out.DeviceCookie, deviceCookieMaxAge, "/", "", h.secure, true)
	} else if out.ClearDeviceCookie {
		c.SetCookie(devicetrust.CookieName, "", -1, "/", "", h.secure, true)
	}

	c.Redirect(http.StatusFound, h.redirect.Resolve(next, c.Request.Host))
}

func (h *AuthHandlers) renderLoginError(c *gin.Context, out *service.LoginOutcome) {
	resp := gin.H{
		"error_code": string(out.ErrorCode),
		"error":      core.LoginErrorMessages[out.ErrorCode],
	}
	if out.Username != "" {
		resp["username"] = out.Username
	}
	c.JSON(http.StatusOK, resp)
}

// twoFactorURL builds the redirect into the verification step, round-tripping
// the original redirect target, the downstream OAuth client ID embedded in
// it, and any pending device-rejection code.
func (h *AuthHandlers) twoFactorURL(out *service.LoginOutcome, next string) string {
	query := url.Values{}
	query.Set("k", out.TwoFactorKey)
	if next != "" {
		if clientID := clientIDFrom(next); clientID != "" {
			query.Set("client_id", clientID)
		}
		query.Set("next", next)
	}
	if out.ErrorCode != "" {
		query.Set("error_code", string(out.ErrorCode))
	}
	return TwoFactorPath + "?" + query.Encode()
}

func (h *AuthHandlers) redirectExpired(c *gin.Context) {
	c.Redirect(http.StatusFound, LoginPath+"?error_code="+string(core.CodeVerificationExpired))
}

func (h *AuthHandlers) setSessionCookie(c *gin.Context, sid string) {
	c.SetCookie(SessionCookie, sid, 0, "/", "", h.secure, true)
}

// nextParam reads the redirect target from the form or the query string.
func (h *AuthHandlers) nextParam(c *gin.Context) string {
	if next := c.PostForm("next"); next != "" {
		return next
	}
	return c.Query("next")
}

// clientIDFrom extracts a client_id query parameter embedded in a redirect
// target, when present.
func clientIDFrom(next string) string {
	parsed, err := url.Parse(next)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("client_id")
}
