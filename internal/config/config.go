package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr        string `yaml:"http_addr"`
	PostgresDSN     string `yaml:"postgres_dsn"`
	DBResetOnStart  bool   `yaml:"db_reset_on_start"`
	LogLevel        string `yaml:"log_level"`
	AppEnv          string `yaml:"app_env"`
	AuthzPolicyFile string `yaml:"authz_policy_file"`

	OIDCIssuerURL         string `yaml:"oidc_issuer_url"`
	OIDCAudience          string `yaml:"oidc_audience"`
	OIDCJWKSURL           string `yaml:"oidc_jwks_url"`
	OIDCAlgorithm         string `yaml:"oidc_algorithm"`
	OIDCClockSkewSecs     int    `yaml:"oidc_clock_skew_seconds"`
	OIDCJWKSCacheTTLSecs  int    `yaml:"oidc_jwks_cache_ttl_seconds"`
	OIDCJWKSFetchTimeoutS int    `yaml:"oidc_jwks_fetch_timeout_seconds"`

	RateLimitRequests      int  `yaml:"rate_limit_requests"`
	RateLimitWindowSeconds int  `yaml:"rate_limit_window_seconds"`
	RateLimitFailClosed    bool `yaml:"rate_limit_fail_closed"`
	RateLimitMaxKeys       int  `yaml:"rate_limit_max_keys"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

func Defaults() Config {
	return Config{
		HTTPAddr:               ":8080",
		LogLevel:               "info",
		AppEnv:                 "dev",
		OIDCAlgorithm:          "RS256",
		OIDCJWKSCacheTTLSecs:   600,
		OIDCJWKSFetchTimeoutS:  5,
		RateLimitWindowSeconds: 60,
		RateLimitMaxKeys:       10000,
	}
}

// FromEnv builds a Config from defaults and environment variables only.
func FromEnv() Config {
	cfg := Defaults()
	applyEnv(&cfg)
	return cfg
}

// Load reads an optional YAML file, then lets environment variables override it.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path = strings.TrimSpace(path); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = envDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.PostgresDSN = envDefault("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.DBResetOnStart = envBoolDefault("DB_RESET_ON_START", cfg.DBResetOnStart)
	cfg.LogLevel = envDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.AppEnv = envDefault("APP_ENV", cfg.AppEnv)
	cfg.AuthzPolicyFile = envDefault("AUTHZ_POLICY_FILE", cfg.AuthzPolicyFile)
	cfg.OIDCIssuerURL = envDefault("OIDC_ISSUER_URL", cfg.OIDCIssuerURL)
	cfg.OIDCAudience = envDefault("OIDC_AUDIENCE", cfg.OIDCAudience)
	cfg.OIDCJWKSURL = envDefault("OIDC_JWKS_URL", cfg.OIDCJWKSURL)
	cfg.OIDCAlgorithm = envDefault("OIDC_ALGORITHM", cfg.OIDCAlgorithm)
	cfg.OIDCClockSkewSecs = envIntDefault("OIDC_CLOCK_SKEW_SECONDS", cfg.OIDCClockSkewSecs)
	cfg.OIDCJWKSCacheTTLSecs = envIntDefault("OIDC_JWKS_CACHE_TTL_SECONDS", cfg.OIDCJWKSCacheTTLSecs)
	cfg.OIDCJWKSFetchTimeoutS = envIntDefault("OIDC_JWKS_FETCH_TIMEOUT_SECONDS", cfg.OIDCJWKSFetchTimeoutS)
	cfg.RateLimitRequests = envIntDefault("RATE_LIMIT_REQUESTS", cfg.RateLimitRequests)
	cfg.RateLimitWindowSeconds = envIntDefault("RATE_LIMIT_WINDOW_SECONDS", cfg.RateLimitWindowSeconds)
	cfg.RateLimitFailClosed = envBoolDefault("RATE_LIMIT_FAIL_CLOSED", cfg.RateLimitFailClosed)
	cfg.RateLimitMaxKeys = envIntDefault("RATE_LIMIT_MAX_KEYS", cfg.RateLimitMaxKeys)
	cfg.RedisAddr = envDefault("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = envDefault("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = envIntDefault("REDIS_DB", cfg.RedisDB)
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

// JWKSURL falls back to the issuer's well-known key set location.
func (c Config) JWKSURL() string {
	if url := strings.TrimSpace(c.OIDCJWKSURL); url != "" {
		return url
	}
	issuer := strings.TrimRight(strings.TrimSpace(c.OIDCIssuerURL), "/")
	if issuer == "" {
		return ""
	}
	return issuer + "/.well-known/jwks.json"
}

func (c Config) ClockSkew() time.Duration {
	return time.Duration(c.OIDCClockSkewSecs) * time.Second
}

func (c Config) JWKSCacheTTL() time.Duration {
	return time.Duration(c.OIDCJWKSCacheTTLSecs) * time.Second
}

func (c Config) JWKSFetchTimeout() time.Duration {
	return time.Duration(c.OIDCJWKSFetchTimeoutS) * time.Second
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}
