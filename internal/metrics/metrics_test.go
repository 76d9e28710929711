package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestMiddleware_CountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/posts/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/posts/1", "/posts/2", "/nowhere"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, m)
	assert.Contains(t, body, `blog_platform_http_requests_total{method="GET",route="/posts/:id",status="204"} 2`)
	assert.Contains(t, body, `blog_platform_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.Contains(t, body, "blog_platform_http_requests_in_flight 0")
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.RateLimited("auth")
	var nilMetrics *Metrics
	nilMetrics.RateLimited("auth")

	body := scrape(t, m)
	assert.Contains(t, body, `blog_platform_rate_limited_total{scope="auth"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
