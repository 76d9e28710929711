package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blogPlatform/internal/auth"
	"blogPlatform/internal/service"
	"blogPlatform/internal/service/users"
)

func (h *handlers) mountUsers(api *gin.RouterGroup) {
	authn := h.authenticate(h.userCookie())

	a := api.Group("/auth", noStore, authn, h.rateLimit(h.authLimiter, "auth"))
	a.POST("/register", h.register)
	a.POST("/login", h.login)
	a.POST("/logout", h.logout)
	a.GET("/me", h.requireUser, h.me)
	a.GET("/google", h.googleBegin)
	a.GET("/google/callback", h.googleCallback)

	u := api.Group("/users", authn, h.rateLimit(h.limiter, "api"), h.requireUser)
	u.GET("", h.listUsers)
	u.GET("/:id", h.getProfile)
	u.PUT("/me", h.requireNotBanned, h.updateProfile)
	u.PUT("/me/password", h.changePassword)
	u.DELETE("/me", h.deactivate)

	f := api.Group("/friends", authn, h.rateLimit(h.limiter, "api"), h.requireUser)
	f.GET("", h.listFriends)
	f.GET("/status/:userId", h.friendshipStatus)
	f.DELETE("/:userId", h.unfriend)

	fr := api.Group("/friend-requests", authn, h.rateLimit(h.limiter, "api"), h.requireUser)
	fr.GET("/incoming", h.listIncoming)
	fr.GET("/outgoing", h.listOutgoing)
	fr.POST("", h.requireNotBanned, h.sendRequest)
	fr.POST("/:id/accept", h.requireNotBanned, h.respondRequest(true))
	fr.POST("/:id/reject", h.respondRequest(false))
	fr.DELETE("/:id", h.cancelRequest)
}

func (h *handlers) startSession(c *gin.Context, status int, sess *users.Session) {
	h.setSessionCookie(c, h.userCookie(), sess.Token, sess.ExpiresAt)
	c.JSON(status, sess)
}

func (h *handlers) register(c *gin.Context) {
	var in users.RegisterInput
	if !h.bindJSON(c, &in) {
		return
	}
	sess, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.startSession(c, http.StatusCreated, sess)
}

func (h *handlers) login(c *gin.Context) {
	var in users.LoginInput
	if !h.bindJSON(c, &in) {
		return
	}
	sess, err := h.users.Login(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.startSession(c, http.StatusOK, sess)
}

// logout always clears the session cookie; an anonymous caller has nothing to revoke.
func (h *handlers) logout(c *gin.Context) {
	if currentPrincipal(c) != nil {
		p, err := auth.RequireUser(c.Request.Context())
		if err != nil {
			h.writeError(c, err)
			return
		}
		if err := h.users.Logout(c.Request.Context(), p); err != nil {
			h.writeError(c, err)
			return
		}
	}
	h.clearCookie(c, h.userCookie(), "/")
	c.Status(http.StatusNoContent)
}

func (h *handlers) me(c *gin.Context) {
	prof, err := h.users.Me(c.Request.Context(), currentPrincipal(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, prof)
}

func (h *handlers) googleBegin(c *gin.Context) {
	url, state, err := h.users.BeginOAuth()
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.setCookie(c, oauthStateCookie, state, oauthStateTTL, "/api/auth/google")
	if c.Query("mode") == "json" {
		c.JSON(http.StatusOK, gin.H{"url": url})
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (h *handlers) googleCallback(c *gin.Context) {
	expected, _ := c.Cookie(oauthStateCookie)
	h.clearCookie(c, oauthStateCookie, "/api/auth/google")
	if msg := c.Query("error"); msg != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "oauth sign-in was cancelled: " + msg})
		return
	}
	sess, err := h.users.CompleteOAuth(c.Request.Context(), c.Query("code"), c.Query("state"), expected)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.startSession(c, http.StatusOK, sess)
}

func (h *handlers) listUsers(c *gin.Context) {
	var q users.ListUsersQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.users.ListUsers(c.Request.Context(), q, false)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) getProfile(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	prof, err := h.users.GetProfile(c.Request.Context(), id, currentPrincipal(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, prof)
}

func (h *handlers) updateProfile(c *gin.Context) {
	var in users.UpdateProfileInput
	if !h.bindJSON(c, &in) {
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), currentPrincipal(c).ID, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *handlers) changePassword(c *gin.Context) {
	var in users.ChangePasswordInput
	if !h.bindJSON(c, &in) {
		return
	}
	if err := h.users.ChangePassword(c.Request.Context(), currentPrincipal(c).ID, in); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) deactivate(c *gin.Context) {
	if err := h.users.Deactivate(c.Request.Context(), currentPrincipal(c)); err != nil {
		h.writeError(c, err)
		return
	}
	h.clearCookie(c, h.userCookie(), "/")
	c.Status(http.StatusNoContent)
}

func (h *handlers) listFriends(c *gin.Context) {
	var q service.PageQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.users.ListFriends(c.Request.Context(), currentPrincipal(c).ID, q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) listIncoming(c *gin.Context) {
	var q service.PageQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.users.ListIncoming(c.Request.Context(), currentPrincipal(c).ID, q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) listOutgoing(c *gin.Context) {
	var q service.PageQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.users.ListOutgoing(c.Request.Context(), currentPrincipal(c).ID, q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) friendshipStatus(c *gin.Context) {
	other, ok := h.paramID(c, "userId")
	if !ok {
		return
	}
	st, err := h.users.FriendshipStatus(c.Request.Context(), currentPrincipal(c).ID, other)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": other, "status": st})
}

type friendRequestBody struct {
	UserID int64 `json:"userId"`
}

func (h *handlers) sendRequest(c *gin.Context) {
	var in friendRequestBody
	if !h.bindJSON(c, &in) {
		return
	}
	fs, err := h.users.SendRequest(c.Request.Context(), currentPrincipal(c).ID, in.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fs)
}

func (h *handlers) respondRequest(accept bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.paramID(c, "id")
		if !ok {
			return
		}
		fs, err := h.users.Respond(c.Request.Context(), currentPrincipal(c).ID, id, accept)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, fs)
	}
}

func (h *handlers) cancelRequest(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	if err := h.users.Cancel(c.Request.Context(), currentPrincipal(c).ID, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) unfriend(c *gin.Context) {
	other, ok := h.paramID(c, "userId")
	if !ok {
		return
	}
	if err := h.users.Unfriend(c.Request.Context(), currentPrincipal(c).ID, other); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
