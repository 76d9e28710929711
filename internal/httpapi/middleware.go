package httpapi

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/auth"
	"blogPlatform/internal/ratelimit"
	"blogPlatform/internal/service/admin"
	"blogPlatform/models"
)

const adminKey = "admin"

// authenticate attaches the caller's principal when a valid token is present.
// A bad bearer header is 401. A session cookie that no longer validates is
// cleared and the request continues anonymously, leaving the decision to
// requireUser and requireAdmin.
func (h *handlers) authenticate(cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		fromHeader := c.GetHeader("Authorization") != ""
		tok := auth.TokenFromRequest(c.Request, cookieName)
		if tok == "" {
			if fromHeader {
				h.writeError(c, apperr.Unauthorized("malformed authorization header"))
				return
			}
			c.Next()
			return
		}
		p, err := h.principal(c, tok)
		if err != nil {
			if !fromHeader && apperr.Is(err, apperr.KindUnauthorized) {
				h.log.Debug("dropping stale session cookie", zap.String("cookie", cookieName), zap.Error(err))
				h.clearCookie(c, cookieName, "/")
				c.Next()
				return
			}
			h.writeError(c, err)
			return
		}
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

func (h *handlers) principal(c *gin.Context, tok string) (*auth.Principal, error) {
	p, err := auth.ParseToken(tok, h.secret)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired token")
	}
	if h.revocations != nil && p.TokenID != "" {
		revoked, err := h.revocations.IsRevoked(c.Request.Context(), p.TokenID)
		if err != nil {
			return nil, apperr.Wrap(err, "check token revocation")
		}
		if revoked {
			return nil, apperr.Unauthorized("token has been revoked")
		}
	}
	return p, nil
}

// requireUser rejects callers that are not signed-in end users.
func (h *handlers) requireUser(c *gin.Context) {
	if _, err := auth.RequireUser(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.Next()
}

// requireNotBanned blocks writes from deactivated users and users with a ban in effect.
func (h *handlers) requireNotBanned(c *gin.Context) {
	p, err := auth.RequireUser(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.users.CheckCanWrite(c.Request.Context(), p.ID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Next()
}

// requireAdmin loads the calling admin account and tags the request with the
// client address used by audit records.
func (h *handlers) requireAdmin(c *gin.Context) {
	ctx := admin.WithClientIP(c.Request.Context(), c.ClientIP())
	a, err := h.admin.Authenticate(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Request = c.Request.WithContext(ctx)
	c.Set(adminKey, a)
	c.Next()
}

func currentAdmin(c *gin.Context) *models.AdminUser {
	a, _ := c.MustGet(adminKey).(*models.AdminUser)
	return a
}

func currentPrincipal(c *gin.Context) *auth.Principal {
	p, _ := auth.FromContext(c.Request.Context())
	return p
}

// rateLimit consumes a token keyed by principal, or by client IP for anonymous callers.
func (h *handlers) rateLimit(l *ratelimit.Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		key := "ip:" + c.ClientIP()
		if p := currentPrincipal(c); p != nil {
			key = p.Kind + ":" + strconv.FormatInt(p.ID, 10)
		}
		ok, retry := l.Allow(key)
		if !ok {
			h.metrics.RateLimited(scope)
			secs := int(math.Ceil(retry.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			h.log.Debug("rate limited", zap.String("scope", scope), zap.String("key", key))
			h.writeError(c, apperr.TooManyRequests("too many requests, retry in %d seconds", secs))
			return
		}
		c.Next()
	}
}

// noStore marks responses carrying credentials as uncacheable.
func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Next()
}
