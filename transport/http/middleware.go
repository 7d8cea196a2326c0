package http

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/skyward-cloud/gatehouse/core"
	"github.com/skyward-cloud/gatehouse/ports"
)

// SessionCookie is the browser cookie holding the opaque session ID.
const SessionCookie = "gatehouse_sid"

const (
	ctxSessionID = "sessionID"
	ctxSession   = "session"
)

// SessionMiddleware resolves the session cookie into a session record. An
// absent or expired session leaves the request anonymous; handlers decide
// what that means.
func SessionMiddleware(sessions ports.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(SessionCookie)
		if err == nil && sid != "" {
			if session, err := sessions.Load(c.Request.Context(), sid); err == nil {
				c.Set(ctxSessionID, sid)
				c.Set(ctxSession, session)
			}
		}
		c.Next()
	}
}

// RequireSession redirects anonymous requests to the login page, carrying
// the original URL as the post-login redirect target.
func RequireSession(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := currentSession(c); !ok {
			target := loginPath + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Next()
	}
}

// currentSession returns the authenticated session bound to this request.
func currentSession(c *gin.Context) (string, *core.Session, bool) {
	sid, ok := c.Get(ctxSessionID)
	if !ok {
		return "", nil, false
	}
	value, ok := c.Get(ctxSession)
	if !ok {
		return "", nil, false
	}
	session, ok := value.(*core.Session)
	if !ok || !session.Authenticated() {
		return "", nil, false
	}
	return sid.(string), session, true
}
