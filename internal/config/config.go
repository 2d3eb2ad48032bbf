// Package config provides application configuration loaded from environment
// variables (and an optional config file named by CONFIG_FILE).
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        // e.g. "8080"
	Env            string        // "development" | "production"
	ReadTimeout    time.Duration // default 10s
	WriteTimeout   time.Duration // default 10s
	StaticDir      string        // browser UI directory; "" = not served
	AllowedOrigins []string      // CORS + WS origins in production
}

// AuctionConfig holds the auction timing and the administrator identity.
type AuctionConfig struct {
	TimerDuration      time.Duration // bid round length, default 5s
	TickInterval       time.Duration // expiry polling cadence, default 200ms
	StatusPushInterval time.Duration // WS countdown push cadence, default 1s
	AdminTeam          string        // team allowed to confirm/cancel/delete
	BidRateLimit       int           // requests/s per IP on mutating routes
}

// RosterConfig points at the teams/players file.
type RosterConfig struct {
	Path string // "" = embedded default roster
}

// DBConfig holds the optional PostgreSQL result archive settings.
type DBConfig struct {
	DSN             string        // "" disables the archive
	MaxOpenConns    int           // default 5
	MaxIdleConns    int           // default 2
	ConnMaxLifetime time.Duration // default 5m
	MigrationsDir   string        // default "migrations"
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server  ServerConfig
	Auction AuctionConfig
	Roster  RosterConfig
	DB      DBConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// ArchiveEnabled reports whether committed results are mirrored to Postgres.
func (c *Config) ArchiveEnabled() bool {
	return c.DB.DSN != ""
}

// Validate checks that all required configuration values are present and valid.
// Every problem found is joined into the returned error.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT must be set"))
	}
	if c.Auction.AdminTeam == "" {
		errs = append(errs, errors.New("AUCTION_ADMIN_TEAM must be set"))
	}
	if c.Auction.TimerDuration <= 0 {
		errs = append(errs, fmt.Errorf("AUCTION_TIMER_DURATION must be positive, got %s", c.Auction.TimerDuration))
	}
	if c.Auction.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("AUCTION_TICK_INTERVAL must be positive, got %s", c.Auction.TickInterval))
	} else if c.Auction.TickInterval >= c.Auction.TimerDuration {
		errs = append(errs, fmt.Errorf(
			"AUCTION_TICK_INTERVAL (%s) must be shorter than AUCTION_TIMER_DURATION (%s)",
			c.Auction.TickInterval, c.Auction.TimerDuration,
		))
	}
	if c.Auction.StatusPushInterval <= 0 {
		errs = append(errs, fmt.Errorf("AUCTION_STATUS_PUSH_INTERVAL must be positive, got %s", c.Auction.StatusPushInterval))
	}
	if c.Auction.BidRateLimit < 1 {
		errs = append(errs, fmt.Errorf("AUCTION_BID_RATE_LIMIT must be at least 1, got %d", c.Auction.BidRateLimit))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once.
// Panics if loading fails; call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = Load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Loader
// ──────────────────────────────────────────────────────────────────────────────

// Load builds a Config from defaults, the optional CONFIG_FILE, and the
// environment (highest precedence).  Keys map to env vars by upper-casing and
// replacing dots, so "auction.admin_team" is AUCTION_ADMIN_TEAM.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// ── Server ────────────────────────────────────────────────────────────────
	v.SetDefault("server.port", "8080")
	v.SetDefault("environment", "development")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.static_dir", "")
	v.SetDefault("ws.allowed_origins", "")

	// ── Auction ───────────────────────────────────────────────────────────────
	v.SetDefault("auction.timer_duration", 5*time.Second)
	v.SetDefault("auction.tick_interval", 200*time.Millisecond)
	v.SetDefault("auction.status_push_interval", time.Second)
	v.SetDefault("auction.admin_team", "Monkey D. United")
	v.SetDefault("auction.bid_rate_limit", 30)

	// ── Roster / DB ───────────────────────────────────────────────────────────
	v.SetDefault("roster.path", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("db.max_open_conns", 5)
	v.SetDefault("db.max_idle_conns", 2)
	v.SetDefault("db.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("db.migrations_dir", "migrations")

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
	}

	cfg := &Config{}

	cfg.Server = ServerConfig{
		Port:           v.GetString("server.port"),
		Env:            v.GetString("environment"),
		ReadTimeout:    v.GetDuration("server.read_timeout"),
		WriteTimeout:   v.GetDuration("server.write_timeout"),
		StaticDir:      v.GetString("server.static_dir"),
		AllowedOrigins: splitList(v.GetString("ws.allowed_origins")),
	}

	cfg.Auction = AuctionConfig{
		TimerDuration:      v.GetDuration("auction.timer_duration"),
		TickInterval:       v.GetDuration("auction.tick_interval"),
		StatusPushInterval: v.GetDuration("auction.status_push_interval"),
		AdminTeam:          strings.TrimSpace(v.GetString("auction.admin_team")),
		BidRateLimit:       v.GetInt("auction.bid_rate_limit"),
	}

	cfg.Roster = RosterConfig{
		Path: v.GetString("roster.path"),
	}

	cfg.DB = DBConfig{
		DSN:             v.GetString("database.dsn"),
		MaxOpenConns:    v.GetInt("db.max_open_conns"),
		MaxIdleConns:    v.GetInt("db.max_idle_conns"),
		ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
		MigrationsDir:   v.GetString("db.migrations_dir"),
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

// splitList turns "a, b,,c" into ["a" "b" "c"].
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
