package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig
	DB        DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
	Query     QueryConfig
	Logger    LoggerConfig
}

// AppConfig holds configuration for the application servers
type AppConfig struct {
	Environment            string `mapstructure:"APP_ENV"`
	GRPCPort               string `mapstructure:"GRPC_PORT"`
	HTTPPort               string `mapstructure:"HTTP_PORT"`
	ShutdownTimeoutSeconds int    `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`

	// TrustedProxies lists proxy IPs or CIDRs whose forwarded client address is honoured.
	TrustedProxies []string `mapstructure:"TRUSTED_PROXIES"`
}

// DatabaseConfig holds configuration for the database
type DatabaseConfig struct {
	Driver          string `mapstructure:"DB_DRIVER"` // postgres or sqlite
	Host            string `mapstructure:"DB_HOST"`
	Port            string `mapstructure:"DB_PORT"`
	User            string `mapstructure:"DB_USER"`
	Password        string `mapstructure:"DB_PASSWORD"`
	Name            string `mapstructure:"DB_NAME"`
	SSLMode         string `mapstructure:"DB_SSLMODE"`
	SQLitePath      string `mapstructure:"DB_SQLITE_PATH"`
	MaxOpenConns    int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `mapstructure:"DB_CONN_MAX_LIFETIME_SECONDS"`
	ConnMaxIdleTime int    `mapstructure:"DB_CONN_MAX_IDLE_TIME_SECONDS"`
	Seed            bool   `mapstructure:"DB_SEED"`
}

// RedisConfig holds configuration for the Redis connection
type RedisConfig struct {
	Host        string `mapstructure:"REDIS_HOST"`
	Port        string `mapstructure:"REDIS_PORT"`
	Password    string `mapstructure:"REDIS_PASSWORD"`
	DB          int    `mapstructure:"REDIS_DB"`
	MaxRetries  int    `mapstructure:"REDIS_MAX_RETRIES"`
	PoolSize    int    `mapstructure:"REDIS_POOL_SIZE"`
	MinIdleConn int    `mapstructure:"REDIS_MIN_IDLE_CONN"`
}

// CacheConfig holds configuration for the shared user list cache
type CacheConfig struct {
	Driver     string `mapstructure:"CACHE_DRIVER"` // redis or memory
	TTLSeconds int    `mapstructure:"CACHE_TTL_SECONDS"`
	Capacity   int    `mapstructure:"CACHE_CAPACITY"`
	NumShards  int    `mapstructure:"CACHE_NUM_SHARDS"`
}

// RateLimitConfig holds configuration for request rate limiting
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"RATE_LIMIT_ENABLED"`
	RequestsPerSecond float64 `mapstructure:"RATE_LIMIT_REQUESTS_PER_SECOND"`
	BurstCapacity     int     `mapstructure:"RATE_LIMIT_BURST_CAPACITY"`
}

// AuthConfig holds configuration for session cookies and auth redirects
type AuthConfig struct {
	JWTSecret       string `mapstructure:"AUTH_JWT_SECRET"`
	CookieName      string `mapstructure:"AUTH_COOKIE_NAME"`
	CookieSecure    bool   `mapstructure:"AUTH_COOKIE_SECURE"`
	TokenTTLMinutes int    `mapstructure:"AUTH_TOKEN_TTL_MINUTES"`
	LoginPath       string `mapstructure:"AUTH_LOGIN_PATH"`
	HomePath        string `mapstructure:"AUTH_HOME_PATH"`
}

// QueryConfig holds configuration for the per-request query cache
type QueryConfig struct {
	StaleTimeSeconds int `mapstructure:"QUERY_STALE_TIME_SECONDS"`
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	Level            string  `mapstructure:"LOG_LEVEL"`
	Format           string  `mapstructure:"LOG_FORMAT"`
	OutputPath       string  `mapstructure:"LOG_OUTPUT_PATH"`
	SlowQuerySeconds float64 `mapstructure:"LOG_SLOW_QUERY_SECONDS"`
	EnableSampling   bool    `mapstructure:"LOG_ENABLE_SAMPLING"`
	ServiceName      string  `mapstructure:"SERVICE_NAME"`
	ServiceVersion   string  `mapstructure:"SERVICE_VERSION"`
}

// LoadConfig reads configuration from app.env in path and from environment variables.
// Environment variables take precedence over the file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("app") // Look for app.env
	v.SetConfigType("env")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if we have env vars
	}

	// Environment dependent defaults need APP_ENV from the file or the environment.
	setEnvironmentDefaults(v, v.GetString("APP_ENV"))

	var config Config

	config.App.Environment = v.GetString("APP_ENV")
	config.App.GRPCPort = v.GetString("GRPC_PORT")
	config.App.HTTPPort = v.GetString("HTTP_PORT")
	config.App.ShutdownTimeoutSeconds = v.GetInt("SHUTDOWN_TIMEOUT_SECONDS")
	config.App.TrustedProxies = splitList(v.GetString("TRUSTED_PROXIES"))

	config.DB.Driver = v.GetString("DB_DRIVER")
	config.DB.Host = v.GetString("DB_HOST")
	config.DB.Port = v.GetString("DB_PORT")
	config.DB.User = v.GetString("DB_USER")
	config.DB.Password = v.GetString("DB_PASSWORD")
	config.DB.Name = v.GetString("DB_NAME")
	config.DB.SSLMode = v.GetString("DB_SSLMODE")
	config.DB.SQLitePath = v.GetString("DB_SQLITE_PATH")
	config.DB.MaxOpenConns = v.GetInt("DB_MAX_OPEN_CONNS")
	config.DB.MaxIdleConns = v.GetInt("DB_MAX_IDLE_CONNS")
	config.DB.ConnMaxLifetime = v.GetInt("DB_CONN_MAX_LIFETIME_SECONDS")
	config.DB.ConnMaxIdleTime = v.GetInt("DB_CONN_MAX_IDLE_TIME_SECONDS")
	config.DB.Seed = v.GetBool("DB_SEED")

	config.Redis.Host = v.GetString("REDIS_HOST")
	config.Redis.Port = v.GetString("REDIS_PORT")
	config.Redis.Password = v.GetString("REDIS_PASSWORD")
	config.Redis.DB = v.GetInt("REDIS_DB")
	config.Redis.MaxRetries = v.GetInt("REDIS_MAX_RETRIES")
	config.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	config.Redis.MinIdleConn = v.GetInt("REDIS_MIN_IDLE_CONN")

	config.Cache.Driver = v.GetString("CACHE_DRIVER")
	config.Cache.TTLSeconds = v.GetInt("CACHE_TTL_SECONDS")
	config.Cache.Capacity = v.GetInt("CACHE_CAPACITY")
	config.Cache.NumShards = v.GetInt("CACHE_NUM_SHARDS")

	config.RateLimit.Enabled = v.GetBool("RATE_LIMIT_ENABLED")
	config.RateLimit.RequestsPerSecond = v.GetFloat64("RATE_LIMIT_REQUESTS_PER_SECOND")
	config.RateLimit.BurstCapacity = v.GetInt("RATE_LIMIT_BURST_CAPACITY")

	config.Auth.JWTSecret = v.GetString("AUTH_JWT_SECRET")
	config.Auth.CookieName = v.GetString("AUTH_COOKIE_NAME")
	config.Auth.CookieSecure = v.GetBool("AUTH_COOKIE_SECURE")
	config.Auth.TokenTTLMinutes = v.GetInt("AUTH_TOKEN_TTL_MINUTES")
	config.Auth.LoginPath = v.GetString("AUTH_LOGIN_PATH")
	config.Auth.HomePath = v.GetString("AUTH_HOME_PATH")

	config.Query.StaleTimeSeconds = v.GetInt("QUERY_STALE_TIME_SECONDS")

	config.Logger.Level = v.GetString("LOG_LEVEL")
	config.Logger.Format = v.GetString("LOG_FORMAT")
	config.Logger.OutputPath = v.GetString("LOG_OUTPUT_PATH")
	config.Logger.SlowQuerySeconds = v.GetFloat64("LOG_SLOW_QUERY_SECONDS")
	config.Logger.EnableSampling = v.GetBool("LOG_ENABLE_SAMPLING")
	config.Logger.ServiceName = v.GetString("SERVICE_NAME")
	config.Logger.ServiceVersion = v.GetString("SERVICE_VERSION")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("GRPC_PORT", "50051")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 10)
	v.SetDefault("TRUSTED_PROXIES", "")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "hydration_user_service")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_SQLITE_PATH", "hydration_user_service.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME_SECONDS", 300)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)
	v.SetDefault("DB_SEED", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONN", 2)

	v.SetDefault("CACHE_DRIVER", "redis")
	v.SetDefault("CACHE_TTL_SECONDS", 60)
	v.SetDefault("CACHE_CAPACITY", 1000)
	v.SetDefault("CACHE_NUM_SHARDS", 16)

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_REQUESTS_PER_SECOND", 10.0)
	v.SetDefault("RATE_LIMIT_BURST_CAPACITY", 20)

	v.SetDefault("AUTH_JWT_SECRET", "")
	v.SetDefault("AUTH_COOKIE_NAME", "session")
	v.SetDefault("AUTH_TOKEN_TTL_MINUTES", 60)
	v.SetDefault("AUTH_LOGIN_PATH", "/login")
	v.SetDefault("AUTH_HOME_PATH", "/dashboard")

	v.SetDefault("QUERY_STALE_TIME_SECONDS", 60)

	v.SetDefault("LOG_OUTPUT_PATH", "stdout")
	v.SetDefault("LOG_SLOW_QUERY_SECONDS", 0.2)
	v.SetDefault("SERVICE_NAME", "hydration-user-service")
	v.SetDefault("SERVICE_VERSION", "1.0.0")
}

func setEnvironmentDefaults(v *viper.Viper, env string) {
	if env == "production" {
		v.SetDefault("LOG_LEVEL", "info")
		v.SetDefault("LOG_FORMAT", "json")
		v.SetDefault("LOG_ENABLE_SAMPLING", true)
		v.SetDefault("AUTH_COOKIE_SECURE", true)
		return
	}
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_ENABLE_SAMPLING", false)
	v.SetDefault("AUTH_COOKIE_SECURE", false)
}

// splitList parses a comma separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the configuration can be used to build the application.
func (c *Config) Validate() error {
	var problems []string

	if c.App.HTTPPort == "" {
		problems = append(problems, "HTTP_PORT is required")
	}
	if c.App.GRPCPort == "" {
		problems = append(problems, "GRPC_PORT is required")
	}
	if c.App.ShutdownTimeoutSeconds <= 0 {
		problems = append(problems, "SHUTDOWN_TIMEOUT_SECONDS must be positive")
	}

	for _, proxy := range c.App.TrustedProxies {
		if _, _, err := net.ParseCIDR(proxy); err != nil && net.ParseIP(proxy) == nil {
			problems = append(problems, fmt.Sprintf("TRUSTED_PROXIES entry %q is not an IP or CIDR", proxy))
		}
	}

	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("DB_DRIVER %q is not supported", c.DB.Driver))
	}

	switch c.Cache.Driver {
	case "redis", "memory":
	default:
		problems = append(problems, fmt.Sprintf("CACHE_DRIVER %q is not supported", c.Cache.Driver))
	}
	if c.Cache.TTLSeconds <= 0 {
		problems = append(problems, "CACHE_TTL_SECONDS must be positive")
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.BurstCapacity <= 0) {
		problems = append(problems, "rate limit requires positive RATE_LIMIT_REQUESTS_PER_SECOND and RATE_LIMIT_BURST_CAPACITY")
	}

	if len(c.Auth.JWTSecret) < 32 {
		problems = append(problems, "AUTH_JWT_SECRET must be at least 32 characters")
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		problems = append(problems, "AUTH_TOKEN_TTL_MINUTES must be positive")
	}
	if !strings.HasPrefix(c.Auth.LoginPath, "/") || !strings.HasPrefix(c.Auth.HomePath, "/") {
		problems = append(problems, "AUTH_LOGIN_PATH and AUTH_HOME_PATH must be absolute paths")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DSN returns the PostgreSQL Data Source Name
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}
