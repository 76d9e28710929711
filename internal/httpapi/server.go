// Package httpapi is the REST surface of the user, blog and admin services.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blogPlatform/internal/auth"
	"blogPlatform/internal/config"
	"blogPlatform/internal/metrics"
	"blogPlatform/internal/ratelimit"
	"blogPlatform/internal/service/admin"
	"blogPlatform/internal/service/blog"
	"blogPlatform/internal/service/users"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps wires the router. Users is required by every mounted service for the ban gate.
type Deps struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	DB          Pinger
	Users       *users.Service
	Blog        *blog.Service
	Admin       *admin.Service
	Revocations auth.RevocationStore
	Limiter     *ratelimit.Limiter
	AuthLimiter *ratelimit.Limiter
}

type handlers struct {
	cfg         *config.Config
	log         *zap.Logger
	metrics     *metrics.Metrics
	db          Pinger
	users       *users.Service
	blog        *blog.Service
	admin       *admin.Service
	revocations auth.RevocationStore
	secret      string
	limiter     *ratelimit.Limiter
	authLimiter *ratelimit.Limiter
}

// NewRouter builds the gin engine, mounting the services named in cfg.Services.
func NewRouter(d Deps) *gin.Engine {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &handlers{
		cfg:         d.Config,
		log:         log,
		metrics:     d.Metrics,
		db:          d.DB,
		users:       d.Users,
		blog:        d.Blog,
		admin:       d.Admin,
		revocations: d.Revocations,
		secret:      d.Config.Auth.JWTSecret,
		limiter:     d.Limiter,
		authLimiter: d.AuthLimiter,
	}

	r := gin.New()
	r.Use(ginzap.Ginzap(log, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(log, true))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.HTTP.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if h.metrics != nil {
		r.Use(h.metrics.Middleware())
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
	r.GET("/healthz", h.health)

	api := r.Group("/api")
	if d.Config.HasService(config.ServiceUsers) {
		h.mountUsers(api)
	}
	if d.Config.HasService(config.ServiceBlog) {
		h.mountBlog(api)
	}
	if d.Config.HasService(config.ServiceAdmin) && h.admin != nil {
		h.mountAdmin(api)
	}
	return r
}

func (h *handlers) health(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.log.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "services": h.cfg.Services})
}

// Start serves handler on addr and returns a shutdown function honouring the context deadline.
func Start(addr string, handler http.Handler, log *zap.Logger) (func(context.Context) error, error) {
	if addr == "" {
		addr = ":8080"
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", zap.Error(err))
		}
	}()
	return srv.Shutdown, nil
}
