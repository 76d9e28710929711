package httpapi

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blogPlatform/internal/apperr"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// writeError maps err to a status and body. Server errors are logged with the
// underlying cause, which never reaches the client.
func (h *handlers) writeError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= 500 {
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   apperr.Code(err),
		Message: apperr.PublicMessage(err),
		Details: apperr.DetailsOf(err),
	})
}

// bindJSON decodes the request body into dst, answering 400 on malformed input.
func (h *handlers) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.writeError(c, apperr.Invalid("invalid request body: %v", err))
		return false
	}
	return true
}

// bindQuery decodes query parameters into dst, answering 400 on malformed input.
func (h *handlers) bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		h.writeError(c, apperr.Invalid("invalid query: %v", err))
		return false
	}
	return true
}

// paramID parses a positive integer path parameter.
func (h *handlers) paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(c, apperr.Invalid("%s must be a positive integer", name))
		return 0, false
	}
	return id, true
}
