package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blogPlatform/internal/service"
	"blogPlatform/internal/service/blog"
)

func (h *handlers) mountBlog(api *gin.RouterGroup) {
	authn := h.authenticate(h.userCookie())
	limit := h.rateLimit(h.limiter, "api")

	b := api.Group("/blogs", authn, limit)
	b.GET("", h.listPosts)
	b.GET("/:id", h.getPost)
	b.GET("/:id/comments", h.listComments)
	b.GET("/:id/rating", h.ratingSummary)
	b.POST("", h.requireNotBanned, h.createPost)
	b.PUT("/:id", h.requireNotBanned, h.updatePost)
	b.DELETE("/:id", h.requireUser, h.deletePost)
	b.PUT("/:id/rating", h.requireNotBanned, h.ratePost)
	b.DELETE("/:id/rating", h.requireUser, h.removeRating)
	b.POST("/:id/save", h.requireUser, h.savePost)
	b.DELETE("/:id/save", h.requireUser, h.unsavePost)
	b.POST("/:id/comments", h.requireNotBanned, h.addComment)

	api.GET("/saved", authn, limit, h.requireUser, h.listSaved)

	cm := api.Group("/comments", authn, limit, h.requireUser)
	cm.PUT("/:id", h.requireNotBanned, h.editComment)
	cm.DELETE("/:id", h.deleteComment)
	cm.POST("/:id/like", h.requireNotBanned, h.toggleLike)

	rp := api.Group("/reports", authn, limit, h.requireUser)
	rp.POST("", h.requireNotBanned, h.createReport)
	rp.GET("/mine", h.listMyReports)
}

func viewer(c *gin.Context) blog.Viewer {
	return blog.ViewerFrom(currentPrincipal(c))
}

func (h *handlers) listPosts(c *gin.Context) {
	var q blog.ListPostsQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.blog.ListPosts(c.Request.Context(), viewer(c), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) getPost(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.blog.GetPost(c.Request.Context(), viewer(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) createPost(c *gin.Context) {
	var in blog.PostInput
	if !h.bindJSON(c, &in) {
		return
	}
	p, err := h.blog.CreatePost(c.Request.Context(), currentPrincipal(c).ID, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *handlers) updatePost(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var in blog.PostInput
	if !h.bindJSON(c, &in) {
		return
	}
	p, err := h.blog.UpdatePost(c.Request.Context(), currentPrincipal(c).ID, id, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) deletePost(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	if err := h.blog.DeletePost(c.Request.Context(), viewer(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) ratingSummary(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	sum, err := h.blog.RatingSummary(c.Request.Context(), viewer(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

type rateBody struct {
	Score int `json:"score"`
}

func (h *handlers) ratePost(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var in rateBody
	if !h.bindJSON(c, &in) {
		return
	}
	sum, err := h.blog.RatePost(c.Request.Context(), currentPrincipal(c).ID, id, in.Score)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *handlers) removeRating(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	sum, err := h.blog.RemoveRating(c.Request.Context(), currentPrincipal(c).ID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *handlers) savePost(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	if err := h.blog.SavePost(c.Request.Context(), currentPrincipal(c).ID, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) unsavePost(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	if err := h.blog.UnsavePost(c.Request.Context(), currentPrincipal(c).ID, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) listSaved(c *gin.Context) {
	var q service.PageQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.blog.ListSaved(c.Request.Context(), currentPrincipal(c).ID, q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) listComments(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var q service.PageQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.blog.ListComments(c.Request.Context(), viewer(c), id, q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) addComment(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var in blog.CommentInput
	if !h.bindJSON(c, &in) {
		return
	}
	cm, err := h.blog.AddComment(c.Request.Context(), currentPrincipal(c).ID, id, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cm)
}

type editCommentBody struct {
	Content string `json:"content"`
}

func (h *handlers) editComment(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var in editCommentBody
	if !h.bindJSON(c, &in) {
		return
	}
	cm, err := h.blog.EditComment(c.Request.Context(), currentPrincipal(c).ID, id, in.Content)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cm)
}

func (h *handlers) deleteComment(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	if err := h.blog.DeleteComment(c.Request.Context(), viewer(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) toggleLike(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	st, err := h.blog.ToggleLike(c.Request.Context(), currentPrincipal(c).ID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handlers) createReport(c *gin.Context) {
	var in blog.ReportInput
	if !h.bindJSON(c, &in) {
		return
	}
	r, err := h.blog.CreateReport(c.Request.Context(), currentPrincipal(c).ID, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *handlers) listMyReports(c *gin.Context) {
	var q service.PageQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.blog.ListMyReports(c.Request.Context(), currentPrincipal(c).ID, q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
