// file: internal/config/config.go
// version: 2.1.0
// guid: 7b8c9d0e-1f2a-3b4c-5d6e-7f8a9b0c1d2e

package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	TrustedProxies  []string      `yaml:"trusted_proxies"` // may set X-Forwarded-For
}

// CacheConfig holds the tiered response cache settings
type CacheConfig struct {
	Backend     string `yaml:"backend"` // "file" (default), "pebble" or "sqlite"
	Dir         string `yaml:"dir"`
	MemoryLimit int64  `yaml:"memory_limit_bytes"`
	FileLimit   int64  `yaml:"file_limit_bytes"`
}

// RateLimitConfig holds the per-caller miss limiter settings
type RateLimitConfig struct {
	Limit           int           `yaml:"limit"`
	Window          time.Duration `yaml:"window"`
	ReclaimSchedule string        `yaml:"reclaim_schedule"`
}

// CredentialsConfig holds the upstream credential pool settings
type CredentialsConfig struct {
	File        string        `yaml:"file"`
	Cap         int           `yaml:"cap"`
	Validity    time.Duration `yaml:"validity"`
	ResetWindow time.Duration `yaml:"reset_window"`
	MintURL     string        `yaml:"mint_url"`
	MintTimeout time.Duration `yaml:"mint_timeout"`
}

// HardcoverConfig holds the upstream provider endpoints
type HardcoverConfig struct {
	SearchURL         string        `yaml:"search_url"`
	SearchKey         string        `yaml:"search_key"`
	GraphQLURL        string        `yaml:"graphql_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	UserAgent         string        `yaml:"user_agent"`
}

// AuthConfig holds the inbound API key settings
type AuthConfig struct {
	APIKeyHashes []string `yaml:"api_key_hashes"`
}

// Config holds application configuration
type Config struct {
	Server       ServerConfig      `yaml:"server"`
	Cache        CacheConfig       `yaml:"cache"`
	EnableSQLite bool              `yaml:"enable_sqlite3_i_know_the_risks"` // Must be true to use SQLite (safety flag)
	RateLimit    RateLimitConfig   `yaml:"ratelimit"`
	Credentials  CredentialsConfig `yaml:"credentials"`
	Hardcover    HardcoverConfig   `yaml:"hardcover"`
	Auth         AuthConfig        `yaml:"auth"`
}

var AppConfig Config

// SetDefaults registers every default with viper.
func SetDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 7790)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 90*time.Second)
	viper.SetDefault("server.idle_timeout", 120*time.Second)
	viper.SetDefault("server.shutdown_timeout", 30*time.Second)
	viper.SetDefault("server.trusted_proxies", []string{"127.0.0.1", "::1"})

	viper.SetDefault("cache.backend", "file")
	viper.SetDefault("cache.dir", "file_cache")
	viper.SetDefault("cache.memory_limit_bytes", 10*1024*1024)
	viper.SetDefault("cache.file_limit_bytes", 1024*1024*1024)
	viper.SetDefault("enable_sqlite3_i_know_the_risks", false)

	viper.SetDefault("ratelimit.limit", 15)
	viper.SetDefault("ratelimit.window", time.Minute)
	viper.SetDefault("ratelimit.reclaim_schedule", "@every 1h")

	viper.SetDefault("credentials.file", "api_keys.txt")
	viper.SetDefault("credentials.cap", 80)
	viper.SetDefault("credentials.validity", 28*24*time.Hour)
	viper.SetDefault("credentials.reset_window", time.Minute)
	viper.SetDefault("credentials.mint_url", "https://hardcover.app")
	viper.SetDefault("credentials.mint_timeout", 30*time.Second)

	viper.SetDefault("hardcover.search_url", "https://search.hardcover.app/multi_search")
	viper.SetDefault("hardcover.search_key", "cf0jYiqkIXNYh2EnJr1RqHIYJbKOGoGk")
	viper.SetDefault("hardcover.graphql_url", "https://api.hardcover.app/v1/graphql")
	viper.SetDefault("hardcover.timeout", 30*time.Second)
	viper.SetDefault("hardcover.requests_per_minute", 60)
	viper.SetDefault("hardcover.user_agent", "")

	viper.SetDefault("auth.api_key_hashes", []string{})
}

// InitConfig initializes the application configuration
func InitConfig() {
	SetDefaults()

	AppConfig = Config{
		Server: ServerConfig{
			Host:            viper.GetString("server.host"),
			Port:            viper.GetInt("server.port"),
			ReadTimeout:     viper.GetDuration("server.read_timeout"),
			WriteTimeout:    viper.GetDuration("server.write_timeout"),
			IdleTimeout:     viper.GetDuration("server.idle_timeout"),
			ShutdownTimeout: viper.GetDuration("server.shutdown_timeout"),
			TrustedProxies:  viper.GetStringSlice("server.trusted_proxies"),
		},

		Cache: CacheConfig{
			Backend:     viper.GetString("cache.backend"),
			Dir:         viper.GetString("cache.dir"),
			MemoryLimit: viper.GetInt64("cache.memory_limit_bytes"),
			FileLimit:   viper.GetInt64("cache.file_limit_bytes"),
		},
		EnableSQLite: viper.GetBool("enable_sqlite3_i_know_the_risks"),
		RateLimit: RateLimitConfig{
			Limit:           viper.GetInt("ratelimit.limit"),
			Window:          viper.GetDuration("ratelimit.window"),
			ReclaimSchedule: viper.GetString("ratelimit.reclaim_schedule"),
		},
		Credentials: CredentialsConfig{
			File:        viper.GetString("credentials.file"),
			Cap:         viper.GetInt("credentials.cap"),
			Validity:    viper.GetDuration("credentials.validity"),
			ResetWindow: viper.GetDuration("credentials.reset_window"),
			MintURL:     viper.GetString("credentials.mint_url"),
			MintTimeout: viper.GetDuration("credentials.mint_timeout"),
		},
		Hardcover: HardcoverConfig{
			SearchURL:         viper.GetString("hardcover.search_url"),
			SearchKey:         viper.GetString("hardcover.search_key"),
			GraphQLURL:        viper.GetString("hardcover.graphql_url"),
			Timeout:           viper.GetDuration("hardcover.timeout"),
			RequestsPerMinute: viper.GetInt("hardcover.requests_per_minute"),
			UserAgent:         viper.GetString("hardcover.user_agent"),
		},
		Auth: AuthConfig{
			APIKeyHashes: viper.GetStringSlice("auth.api_key_hashes"),
		},
	}

	// Normalize cache backend
	AppConfig.Cache.Backend = strings.ToLower(strings.TrimSpace(AppConfig.Cache.Backend))
	if AppConfig.Cache.Backend == "sqlite3" {
		AppConfig.Cache.Backend = "sqlite"
	}
	if AppConfig.Cache.Backend == "" {
		AppConfig.Cache.Backend = "file"
	}
}
