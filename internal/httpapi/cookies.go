package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

func (h *handlers) userCookie() string  { return h.cfg.Auth.CookieName }
func (h *handlers) adminCookie() string { return h.cfg.Auth.CookieName + "_admin" }

func (h *handlers) setCookie(c *gin.Context, name, value string, ttl time.Duration, path string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(ttl.Seconds()), path, "", h.cfg.Auth.CookieSecure, true)
}

func (h *handlers) clearCookie(c *gin.Context, name, path string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, path, "", h.cfg.Auth.CookieSecure, true)
}

// setSessionCookie stores token until it expires.
func (h *handlers) setSessionCookie(c *gin.Context, name, token string, expires time.Time) {
	ttl := time.Until(expires)
	if ttl <= 0 {
		return
	}
	h.setCookie(c, name, token, ttl, "/")
}
