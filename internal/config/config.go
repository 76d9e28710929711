package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Service names accepted by SERVICES.
const (
	ServiceUsers = "users"
	ServiceBlog  = "blog"
	ServiceAdmin = "admin"
)

// Config holds all application configuration.
type Config struct {
	Database  DatabaseConfig
	HTTP      HTTPConfig
	GRPC      GRPCConfig
	Auth      AuthConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
	Redis     RedisConfig
	OAuth     OAuthConfig
	Admin     AdminConfig
	Services  []string
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string // SQLite database file path
}

// HTTPConfig contains REST API settings.
type HTTPConfig struct {
	Address        string
	AllowedOrigins []string
}

// GRPCConfig contains gRPC server settings.
type GRPCConfig struct {
	Address string // gRPC server listen address (e.g., ":50051")
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret    string // JWT signing secret
	TokenTTL     time.Duration
	CookieName   string
	CookieSecure bool
	TOTPIssuer   string
}

// LogConfig selects the zap logger flavour.
type LogConfig struct {
	Level       string
	Development bool
}

// RateLimitConfig contains the per-client token bucket settings.
type RateLimitConfig struct {
	RequestsPerSecond     float64
	Burst                 int
	AuthRequestsPerSecond float64
	AuthBurst             int
	CleanupInterval       time.Duration
}

// JobsConfig contains cron specs for background sweeps.
type JobsConfig struct {
	BanSweepSpec string
}

// RedisConfig configures the optional token revocation store. Empty Addr keeps revocations in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// OAuthConfig holds the Google OAuth client. Endpoint URLs are overridable for tests and proxies.
type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleAuthURL      string
	GoogleTokenURL     string
	GoogleUserInfoURL  string
}

// Enabled reports whether Google login is configured.
func (o OAuthConfig) Enabled() bool {
	return o.GoogleClientID != "" && o.GoogleClientSecret != "" && o.GoogleRedirectURL != ""
}

// AdminConfig seeds the first superadmin when the admin table is empty.
type AdminConfig struct {
	BootstrapUsername string
	BootstrapPassword string
}

// Load loads configuration from environment variables with sensible defaults.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	cfg, err := load("")
	if err != nil {
		return nil, err
	}

	// Validate critical settings
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// DevJWTSecret is the signing secret LoadWithDefaults falls back to.
const DevJWTSecret = "dev-secret-change-me"

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	return load(DevJWTSecret)
}

// LoadForEnvironment uses LoadWithDefaults when LOG_DEVELOPMENT is true and Load otherwise.
func LoadForEnvironment() (*Config, error) {
	_ = godotenv.Load()
	dev, err := getEnvBool("LOG_DEVELOPMENT", false)
	if err != nil {
		return nil, err
	}
	if dev {
		return LoadWithDefaults()
	}
	return Load()
}

// UsesDevSecret reports whether tokens are signed with the publicly known DevJWTSecret.
func (c *Config) UsesDevSecret() bool {
	return c.Auth.JWTSecret == DevJWTSecret
}

func load(defaultSecret string) (*Config, error) {
	_ = godotenv.Load()

	ttl, err := getEnvInt("JWT_TTL_MINUTES", 60*24)
	if err != nil {
		return nil, err
	}
	burst, err := getEnvInt("RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, err
	}
	authBurst, err := getEnvInt("AUTH_RATE_LIMIT_BURST", 10)
	if err != nil {
		return nil, err
	}
	cleanup, err := getEnvInt("RATE_LIMIT_CLEANUP_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	rps, err := getEnvFloat("RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, err
	}
	authRPS, err := getEnvFloat("AUTH_RATE_LIMIT_RPS", 1)
	if err != nil {
		return nil, err
	}
	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	secure, err := getEnvBool("AUTH_COOKIE_SECURE", false)
	if err != nil {
		return nil, err
	}
	dev, err := getEnvBool("LOG_DEVELOPMENT", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "app.db"),
		},
		HTTP: HTTPConfig{
			Address:        getEnv("HTTP_ADDRESS", ":8080"),
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001")),
		},
		GRPC: GRPCConfig{
			Address: getEnv("GRPC_ADDRESS", ":50051"),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", defaultSecret),
			TokenTTL:     time.Duration(ttl) * time.Minute,
			CookieName:   getEnv("AUTH_COOKIE_NAME", "access_token"),
			CookieSecure: secure,
			TOTPIssuer:   getEnv("TOTP_ISSUER", "blogPlatform"),
		},
		Log: LogConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: dev,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond:     rps,
			Burst:                 burst,
			AuthRequestsPerSecond: authRPS,
			AuthBurst:             authBurst,
			CleanupInterval:       time.Duration(cleanup) * time.Minute,
		},
		Jobs: JobsConfig{
			BanSweepSpec: getEnv("BAN_SWEEP_SPEC", "@every 1m"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		OAuth: OAuthConfig{
			GoogleClientID:     getEnv("OAUTH_GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("OAUTH_GOOGLE_CLIENT_SECRET", ""),
			GoogleRedirectURL:  getEnv("OAUTH_GOOGLE_REDIRECT_URL", ""),
			GoogleAuthURL:      getEnv("OAUTH_GOOGLE_AUTH_URL", "https://accounts.google.com/o/oauth2/auth"),
			GoogleTokenURL:     getEnv("OAUTH_GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
			GoogleUserInfoURL:  getEnv("OAUTH_GOOGLE_USERINFO_URL", "https://openidconnect.googleapis.com/v1/userinfo"),
		},
		Admin: AdminConfig{
			BootstrapUsername: getEnv("ADMIN_BOOTSTRAP_USERNAME", ""),
			BootstrapPassword: getEnv("ADMIN_BOOTSTRAP_PASSWORD", ""),
		},
	}

	services, err := parseServices(getEnv("SERVICES", "users,blog,admin"))
	if err != nil {
		return nil, err
	}
	cfg.Services = services
	return cfg, nil
}

// HasService reports whether the named service should be mounted by this process.
func (c *Config) HasService(name string) bool {
	for _, s := range c.Services {
		if s == name {
			return true
		}
	}
	return false
}

func parseServices(raw string) ([]string, error) {
	var out []string
	for _, s := range splitList(raw) {
		s = strings.ToLower(s)
		switch s {
		case ServiceUsers, ServiceBlog, ServiceAdmin:
			out = append(out, s)
		default:
			return nil, fmt.Errorf("unknown service %q in SERVICES", s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("SERVICES must name at least one service")
	}
	return out, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	if value, exists := os.LookupEnv(key); exists {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %w", key, err)
		}
		return f, nil
	}
	return defaultVal, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	if value, exists := os.LookupEnv(key); exists {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
		}
		return b, nil
	}
	return defaultVal, nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s, HTTP: %s, gRPC: %s, Services: %s, Redis: %q, OAuth: %v, Auth: *** (masked) ***}",
		c.Database.Path, c.HTTP.Address, c.GRPC.Address, strings.Join(c.Services, ","), c.Redis.Addr, c.OAuth.Enabled())
}
