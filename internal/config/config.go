package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MaxGeoTimeout caps the geolocation call so it never stalls a redirect.
const MaxGeoTimeout = 3 * time.Second

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Identity  IdentityConfig
	Geo       GeoConfig
	Redirect  RedirectConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Port        string
	BaseURL     string
	CORSOrigins []string

	// TrustedProxies lists proxy addresses or CIDRs whose forwarding
	// headers are honoured. Empty means the socket peer is the client.
	TrustedProxies []string

	Production bool
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// AuthConfig holds the single-admin policy and session settings.
// AdminEmail may be empty: the server still starts, but every login fails.
type AuthConfig struct {
	AdminEmail string
	JWTSecret  string
	SessionTTL time.Duration
}

// Configured reports whether an admin email is set.
func (c AuthConfig) Configured() bool {
	return c.AdminEmail != ""
}

type IdentityConfig struct {
	TokenURL     string
	UserInfoURL  string
	ClientID     string
	ClientSecret string
}

type GeoConfig struct {
	APIURL  string
	DBPath  string // optional MaxMind MMDB, preferred over the HTTP API when set
	Timeout time.Duration
}

type RedirectConfig struct {
	// CountFailureFatal turns a failed visit increment into an error page
	// instead of redirecting anyway.
	CountFailureFatal bool
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom reads the dotenv file at path (if present) and overlays the process environment.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("APP_ENV", "local")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("GEO_API_URL", "https://ipapi.co")
	v.SetDefault("GEO_TIMEOUT", "3s")
	v.SetDefault("COUNT_FAILURE_FATAL", true)
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	var cfg Config
	cfg.App.Port = v.GetString("APP_PORT")
	cfg.App.BaseURL = strings.TrimRight(v.GetString("BASE_URL"), "/")
	cfg.App.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.App.TrustedProxies = splitList(v.GetString("TRUSTED_PROXIES"))
	cfg.App.Production = v.GetString("APP_ENV") == "production"

	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.Name = v.GetString("DB_NAME")

	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")

	cfg.Auth.AdminEmail = strings.TrimSpace(v.GetString("ADMIN_EMAIL"))
	cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	cfg.Auth.SessionTTL = v.GetDuration("SESSION_TTL")
	if cfg.Auth.SessionTTL <= 0 {
		cfg.Auth.SessionTTL = 24 * time.Hour
	}

	cfg.Identity.TokenURL = v.GetString("IDENTITY_TOKEN_URL")
	cfg.Identity.UserInfoURL = v.GetString("IDENTITY_USERINFO_URL")
	cfg.Identity.ClientID = v.GetString("IDENTITY_CLIENT_ID")
	cfg.Identity.ClientSecret = v.GetString("IDENTITY_CLIENT_SECRET")

	cfg.Geo.APIURL = strings.TrimRight(v.GetString("GEO_API_URL"), "/")
	cfg.Geo.DBPath = v.GetString("GEOIP_DB_PATH")
	cfg.Geo.Timeout = v.GetDuration("GEO_TIMEOUT")
	if cfg.Geo.Timeout <= 0 || cfg.Geo.Timeout > MaxGeoTimeout {
		cfg.Geo.Timeout = MaxGeoTimeout
	}

	cfg.Redirect.CountFailureFatal = v.GetBool("COUNT_FAILURE_FATAL")

	cfg.RateLimit.RequestsPerSecond = v.GetFloat64("RATE_LIMIT_RPS")
	if cfg.RateLimit.RequestsPerSecond <= 0 {
		cfg.RateLimit.RequestsPerSecond = 5
	}
	cfg.RateLimit.BurstSize = v.GetInt("RATE_LIMIT_BURST")
	if cfg.RateLimit.BurstSize <= 0 {
		cfg.RateLimit.BurstSize = 10
	}

	return &cfg, nil
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
