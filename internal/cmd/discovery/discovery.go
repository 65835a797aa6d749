// Package discovery parses discovery command flags and composes the server.
package discovery

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/topicfeed/internal/platform/cmd"
	server "github.com/louisbranch/topicfeed/internal/services/discovery/app"
)

// Config holds discovery command configuration.
type Config struct {
	Port           int           `env:"TOPICFEED_DISCOVERY_PORT"        envDefault:"8095"`
	HealthPort     int           `env:"TOPICFEED_DISCOVERY_HEALTH_PORT" envDefault:"8096"`
	UpstreamURL    string        `env:"TOPICFEED_UPSTREAM_URL"          envDefault:"http://localhost:3000"`
	PreloadBackend string        `env:"TOPICFEED_PRELOAD_BACKEND"       envDefault:"memory"`
	PreloadDBPath  string        `env:"TOPICFEED_PRELOAD_DB_PATH"       envDefault:"data/discovery-preload.db"`
	RedisURL       string        `env:"TOPICFEED_REDIS_URL"`
	PreloadTTL     time.Duration `env:"TOPICFEED_PRELOAD_TTL"           envDefault:"5m"`
	SiteSettings   string        `env:"TOPICFEED_SITE_SETTINGS"`
	SessionKey     string        `env:"TOPICFEED_SESSION_KEY"`
	SessionIdleTTL time.Duration `env:"TOPICFEED_SESSION_IDLE_TTL"      envDefault:"24h"`
	SecureCookies  bool          `env:"TOPICFEED_SECURE_COOKIES"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.IntVar(&cfg.Port, "port", cfg.Port, "discovery HTTP port")
	fs.IntVar(&cfg.HealthPort, "health-port", cfg.HealthPort, "discovery gRPC health port")
	fs.StringVar(&cfg.UpstreamURL, "upstream-url", cfg.UpstreamURL, "upstream forum base URL")
	fs.StringVar(&cfg.PreloadBackend, "preload-backend", cfg.PreloadBackend, "preload store backend (memory, sqlite, redis)")
	fs.StringVar(&cfg.PreloadDBPath, "preload-db-path", cfg.PreloadDBPath, "preload SQLite database path")
	fs.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "preload Redis URL")
	fs.DurationVar(&cfg.PreloadTTL, "preload-ttl", cfg.PreloadTTL, "preload Redis entry TTL")
	fs.StringVar(&cfg.SiteSettings, "site-settings", cfg.SiteSettings, "site settings YAML file")
	fs.StringVar(&cfg.SessionKey, "session-key", cfg.SessionKey, "session cookie signing key")
	fs.DurationVar(&cfg.SessionIdleTTL, "session-idle-ttl", cfg.SessionIdleTTL, "end sessions unused for this long")
	fs.BoolVar(&cfg.SecureCookies, "secure-cookies", cfg.SecureCookies, "mark session cookies Secure")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the discovery service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceDiscovery, func(context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:         fmt.Sprintf(":%d", cfg.Port),
			HealthAddr:       fmt.Sprintf(":%d", cfg.HealthPort),
			UpstreamURL:      cfg.UpstreamURL,
			PreloadBackend:   cfg.PreloadBackend,
			PreloadDBPath:    cfg.PreloadDBPath,
			RedisURL:         cfg.RedisURL,
			PreloadTTL:       cfg.PreloadTTL,
			SiteSettingsPath: cfg.SiteSettings,
			SessionKey:       cfg.SessionKey,
			SessionIdleTTL:   cfg.SessionIdleTTL,
			SecureCookies:    cfg.SecureCookies,
		}); err != nil {
			return fmt.Errorf("serve discovery: %w", err)
		}
		return nil
	})
}
