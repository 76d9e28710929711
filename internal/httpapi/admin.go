package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blogPlatform/internal/service"
	"blogPlatform/internal/service/admin"
	"blogPlatform/internal/service/blog"
	"blogPlatform/internal/service/users"
)

func (h *handlers) mountAdmin(api *gin.RouterGroup) {
	g := api.Group("/admin", h.authenticate(h.adminCookie()))

	a := g.Group("/auth", noStore, h.rateLimit(h.authLimiter, "admin_auth"))
	a.POST("/login", h.adminLogin)
	a.POST("/logout", h.requireAdmin, h.adminLogout)
	a.GET("/me", h.requireAdmin, h.adminMe)
	a.POST("/totp/setup", h.requireAdmin, h.totpSetup)
	a.POST("/totp/enable", h.requireAdmin, h.totpToggle(true))
	a.POST("/totp/disable", h.requireAdmin, h.totpToggle(false))

	r := g.Group("", h.requireAdmin, h.rateLimit(h.limiter, "admin"))
	r.GET("/admins", h.listAdmins)
	r.POST("/admins", h.createAdmin)
	r.PUT("/admins/:id/active", h.setAdminActive)

	r.GET("/users", h.adminListUsers)
	r.GET("/users/:id", h.adminGetUser)
	r.POST("/users/:id/ban", h.banUser)
	r.POST("/users/:id/unban", h.unbanUser)
	r.PUT("/users/:id/active", h.setUserActive)
	r.GET("/bans", h.listBans)

	r.GET("/posts", h.adminListPosts)
	r.POST("/posts/:id/hide", h.hidePost)
	r.POST("/posts/:id/unhide", h.unhidePost)
	r.DELETE("/posts/:id", h.adminDeletePost)
	r.POST("/comments/:id/hide", h.setCommentHidden(true))
	r.POST("/comments/:id/unhide", h.setCommentHidden(false))
	r.DELETE("/comments/:id", h.adminDeleteComment)

	r.GET("/reports", h.listReports)
	r.GET("/reports/:id", h.getReport)
	r.POST("/reports/:id/review", h.reviewReport)
	r.POST("/reports/:id/resolve", h.resolveReport)
	r.GET("/flags", h.listFlags)
	r.POST("/flags", h.createFlag)
	r.POST("/flags/:id/review", h.reviewFlag)

	r.GET("/audit-logs", h.listAuditLogs)
	r.GET("/analytics/overview", h.overview)
	r.GET("/analytics/daily", h.daily)
	r.GET("/analytics/top-posts", h.topPosts)

	r.GET("/settings", h.listSettings)
	r.GET("/settings/:key", h.getSetting)
	r.PUT("/settings/:key", h.updateSetting)
}

func (h *handlers) adminLogin(c *gin.Context) {
	var in admin.LoginInput
	if !h.bindJSON(c, &in) {
		return
	}
	ctx := admin.WithClientIP(c.Request.Context(), c.ClientIP())
	sess, err := h.admin.Login(ctx, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.setSessionCookie(c, h.adminCookie(), sess.Token, sess.ExpiresAt)
	c.JSON(http.StatusOK, sess)
}

func (h *handlers) adminLogout(c *gin.Context) {
	if err := h.admin.Logout(c.Request.Context(), currentPrincipal(c)); err != nil {
		h.writeError(c, err)
		return
	}
	h.clearCookie(c, h.adminCookie(), "/")
	c.Status(http.StatusNoContent)
}

func (h *handlers) adminMe(c *gin.Context) {
	c.JSON(http.StatusOK, currentAdmin(c))
}

func (h *handlers) totpSetup(c *gin.Context) {
	key, err := h.admin.SetupTOTP(c.Request.Context(), currentAdmin(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, key)
}

type totpBody struct {
	Code string `json:"code"`
}

func (h *handlers) totpToggle(enable bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in totpBody
		if !h.bindJSON(c, &in) {
			return
		}
		var err error
		if enable {
			err = h.admin.EnableTOTP(c.Request.Context(), currentAdmin(c), in.Code)
		} else {
			err = h.admin.DisableTOTP(c.Request.Context(), currentAdmin(c), in.Code)
		}
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *handlers) listAdmins(c *gin.Context) {
	var q service.PageQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.admin.ListAdmins(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) createAdmin(c *gin.Context) {
	var in admin.CreateAdminInput
	if !h.bindJSON(c, &in) {
		return
	}
	a, err := h.admin.CreateAdmin(c.Request.Context(), currentAdmin(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

type activeBody struct {
	Active bool `json:"active"`
}

func (h *handlers) setAdminActive(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var in activeBody
	if !h.bindJSON(c, &in) {
		return
	}
	if err := h.admin.SetAdminActive(c.Request.Context(), currentAdmin(c), id, in.Active); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) adminListUsers(c *gin.Context) {
	var q users.ListUsersQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.admin.ListUsers(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) adminGetUser(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	d, err := h.admin.GetUser(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handlers) banUser(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var in admin.BanRequest
	if !h.bindJSON(c, &in) {
		return
	}
	b, err := h.admin.BanUser(c.Request.Context(), currentAdmin(c), id, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *handlers) unbanUser(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	b, err := h.admin.UnbanUser(c.Request.Context(), currentAdmin(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *handlers) setUserActive(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var in activeBody
	if !h.bindJSON(c, &in) {
		return
	}
	if err := h.admin.SetUserActive(c.Request.Context(), currentAdmin(c), id, in.Active); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) listBans(c *gin.Context) {
	var q users.ListBansQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.admin.ListBans(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type adminPostsQuery struct {
	blog.ListPostsQuery
	Hidden *bool `form:"hidden"`
}

func (h *handlers) adminListPosts(c *gin.Context) {
	var q adminPostsQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.admin.ListPosts(c.Request.Context(), q.ListPostsQuery, q.Hidden)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type reasonBody struct {
	Reason string `json:"reason"`
}

func (h *handlers) hidePost(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var in reasonBody
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &in) {
		return
	}
	if err := h.admin.HidePost(c.Request.Context(), currentAdmin(c), id, in.Reason); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) unhidePost(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	if err := h.admin.UnhidePost(c.Request.Context(), currentAdmin(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) adminDeletePost(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeletePost(c.Request.Context(), currentAdmin(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) setCommentHidden(hidden bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.paramID(c, "id")
		if !ok {
			return
		}
		if err := h.admin.SetCommentHidden(c.Request.Context(), currentAdmin(c), id, hidden); err != nil {
			h.writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *handlers) adminDeleteComment(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteComment(c.Request.Context(), currentAdmin(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) listReports(c *gin.Context) {
	var q admin.ListReportsQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.admin.ListReports(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) getReport(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	r, err := h.admin.GetReport(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *handlers) reviewReport(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	r, err := h.admin.ReviewReport(c.Request.Context(), currentAdmin(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *handlers) resolveReport(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var in admin.ResolveInput
	if !h.bindJSON(c, &in) {
		return
	}
	r, err := h.admin.ResolveReport(c.Request.Context(), currentAdmin(c), id, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type flagsQuery struct {
	Status string `form:"status"`
	service.PageQuery
}

func (h *handlers) listFlags(c *gin.Context) {
	var q flagsQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.admin.ListFlags(c.Request.Context(), q.Status, q.PageQuery)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) createFlag(c *gin.Context) {
	var in admin.CreateFlagInput
	if !h.bindJSON(c, &in) {
		return
	}
	f, err := h.admin.CreateFlag(c.Request.Context(), currentAdmin(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (h *handlers) reviewFlag(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var in admin.ReviewFlagInput
	if !h.bindJSON(c, &in) {
		return
	}
	f, err := h.admin.ReviewFlag(c.Request.Context(), currentAdmin(c), id, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *handlers) listAuditLogs(c *gin.Context) {
	var q admin.AuditQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.admin.ListAuditLogs(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) overview(c *gin.Context) {
	o, err := h.admin.Overview(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type dailyQuery struct {
	Days int `form:"days"`
}

func (h *handlers) daily(c *gin.Context) {
	q := dailyQuery{Days: 30}
	if !h.bindQuery(c, &q) {
		return
	}
	stats, err := h.admin.Daily(c.Request.Context(), q.Days)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": stats})
}

type limitQuery struct {
	Limit int `form:"limit"`
}

func (h *handlers) topPosts(c *gin.Context) {
	var q limitQuery
	if !h.bindQuery(c, &q) {
		return
	}
	posts, err := h.admin.TopPosts(c.Request.Context(), q.Limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *handlers) listSettings(c *gin.Context) {
	items, err := h.admin.ListSettings(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": items})
}

func (h *handlers) getSetting(c *gin.Context) {
	s, err := h.admin.GetSetting(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

type settingBody struct {
	Value string `json:"value"`
}

func (h *handlers) updateSetting(c *gin.Context) {
	var in settingBody
	if !h.bindJSON(c, &in) {
		return
	}
	s, err := h.admin.UpdateSetting(c.Request.Context(), currentAdmin(c), c.Param("key"), in.Value)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
