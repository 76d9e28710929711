package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"blogPlatform/internal/auth"
	"blogPlatform/internal/config"
	"blogPlatform/internal/db"
	grpcserver "blogPlatform/internal/grpc"
	"blogPlatform/internal/httpapi"
	"blogPlatform/internal/jobs"
	"blogPlatform/internal/logging"
	"blogPlatform/internal/metrics"
	"blogPlatform/internal/ratelimit"
	"blogPlatform/internal/service/admin"
	"blogPlatform/internal/service/blog"
	"blogPlatform/internal/service/users"
	"blogPlatform/repository"
)

func main() {
	cfg, err := config.LoadForEnvironment()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("configuration loaded", zap.Stringer("config", cfg))
	if cfg.UsesDevSecret() {
		logger.Warn("JWT_SECRET is not set; tokens are signed with the development default")
	}

	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn("close db", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var revocations auth.RevocationStore
	var memRevocations *auth.MemoryRevocationStore
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer func() { _ = rdb.Close() }()
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pctx).Err()
		cancel()
		if err != nil {
			logger.Fatal("connect redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		revocations = auth.NewRedisRevocationStore(rdb)
		logger.Info("token revocations stored in redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		memRevocations = auth.NewMemoryRevocationStore()
		revocations = memRevocations
	}

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	settings := repository.NewSettingRepository(d)
	reports := repository.NewReportRepository(d)
	flags := repository.NewFlagRepository(d)
	userRepo := repository.NewUserRepository(d)

	var oauth *users.GoogleOAuth
	if cfg.OAuth.Enabled() {
		oauth = users.NewGoogleOAuth(cfg.OAuth, &http.Client{Timeout: 10 * time.Second})
	}
	userSvc := users.New(users.Options{
		Users:       userRepo,
		Friendships: repository.NewFriendshipRepository(d),
		Bans:        repository.NewBanRepository(d),
		Settings:    settings,
		Issuer:      issuer,
		Revocations: revocations,
		OAuth:       oauth,
		Logger:      logging.Named(logger, config.ServiceUsers),
	})
	blogSvc := blog.New(blog.Options{
		Posts:    repository.NewPostRepository(d),
		Comments: repository.NewCommentRepository(d),
		Ratings:  repository.NewRatingRepository(d),
		Reports:  reports,
		Flags:    flags,
		Users:    userRepo,
		Settings: settings,
		Logger:   logging.Named(logger, config.ServiceBlog),
	})
	userSvc.SetPostStats(blogSvc)
	adminSvc := admin.New(admin.Options{
		Admins:      repository.NewAdminRepository(d),
		Audit:       repository.NewAuditRepository(d),
		Reports:     reports,
		Flags:       flags,
		Settings:    settings,
		Users:       userSvc,
		Content:     blogSvc,
		Issuer:      issuer,
		Revocations: revocations,
		TOTPIssuer:  cfg.Auth.TOTPIssuer,
		Logger:      logging.Named(logger, config.ServiceAdmin),
	})
	if _, err := adminSvc.Bootstrap(ctx, cfg.Admin.BootstrapUsername, cfg.Admin.BootstrapPassword); err != nil {
		logger.Fatal("bootstrap admin", zap.Error(err))
	}

	limiter := ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	authLimiter := ratelimit.New(cfg.RateLimit.AuthRequestsPerSecond, cfg.RateLimit.AuthBurst)

	jobOpts := jobs.Options{
		BanSweepSpec:    cfg.Jobs.BanSweepSpec,
		Bans:            userSvc,
		Limiters:        []jobs.LimiterCleaner{limiter, authLimiter},
		CleanupInterval: cfg.RateLimit.CleanupInterval,
		Logger:          logger.Named("jobs"),
	}
	if memRevocations != nil {
		jobOpts.Revocations = memRevocations
	}
	scheduler, err := jobs.New(jobOpts)
	if err != nil {
		logger.Fatal("schedule jobs", zap.Error(err))
	}
	scheduler.Start(ctx)

	router := httpapi.NewRouter(httpapi.Deps{
		Config:      cfg,
		Logger:      logger.Named("http"),
		Metrics:     metrics.New(),
		DB:          d,
		Users:       userSvc,
		Blog:        blogSvc,
		Admin:       adminSvc,
		Revocations: revocations,
		Limiter:     limiter,
		AuthLimiter: authLimiter,
	})
	stopHTTP, err := httpapi.Start(cfg.HTTP.Address, router, logger)
	if err != nil {
		logger.Fatal("start http", zap.Error(err))
	}
	logger.Info("http server listening", zap.String("addr", cfg.HTTP.Address), zap.Strings("services", cfg.Services))

	stopGRPC, err := grpcserver.StartGRPC(cfg, d, revocations, logger.Named("grpc"))
	if err != nil {
		logger.Fatal("start grpc", zap.Error(err))
	}
	logger.Info("grpc server listening", zap.String("addr", cfg.GRPC.Address))

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := stopHTTP(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := stopGRPC(shutdownCtx); err != nil {
		logger.Warn("grpc shutdown", zap.Error(err))
	}
	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("jobs did not stop before the shutdown deadline")
	}
}
