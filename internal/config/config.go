// Package config loads server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Match    MatchConfig    `mapstructure:"match"`
	Replay   ReplayConfig   `mapstructure:"replay"`
}

// ServerConfig covers the WebSocket front end and the tick loop.
type ServerConfig struct {
	WebSocket   WebSocketConfig `mapstructure:"websocket"`
	MaxSessions int             `mapstructure:"max_sessions"`
	TickRate    time.Duration   `mapstructure:"tick_rate"`
	// BackendURL, when set, forwards every accepted command to an
	// authoritative upstream. Empty means local-authoritative play.
	BackendURL string `mapstructure:"backend_url"`
}

// WebSocketConfig configures the client-facing listener.
type WebSocketConfig struct {
	Address string `mapstructure:"address"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig selects log level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig configures the PostgreSQL pool. An empty URL disables
// persistence.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// AuthConfig configures join-token hashing.
type AuthConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// MatchConfig is the rule tuning applied to every new match.
type MatchConfig struct {
	BoardWidth  int `mapstructure:"board_width"`
	BoardHeight int `mapstructure:"board_height"`

	PlayerAuraMax   int `mapstructure:"player_aura_max"`
	PlayerAuraRegen int `mapstructure:"player_aura_regen"`
	UnitAuraMax     int `mapstructure:"unit_aura_max"`

	MaxActivationsPerPhase int `mapstructure:"max_activations_per_phase"`
	GlobalMoveQuota        int `mapstructure:"global_move_quota"`
	PlayerMoveQuota        int `mapstructure:"player_move_quota"`

	OpeningBudgetSeconds  float64 `mapstructure:"opening_budget_seconds"`
	MovementBudgetSeconds float64 `mapstructure:"movement_budget_seconds"`
	AuraBudgetSeconds     float64 `mapstructure:"aura_budget_seconds"`

	// CatalogPath points at the ability catalog YAML. Empty uses the
	// built-in catalog.
	CatalogPath string `mapstructure:"catalog_path"`
}

// ReplayConfig controls replay recording.
type ReplayConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// Load reads configuration from path. Missing files fall back to
// defaults; AURAGRID_* environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.websocket.address", ":8089")
	v.SetDefault("server.websocket.path", "/ws")
	v.SetDefault("server.max_sessions", 256)
	v.SetDefault("server.tick_rate", 100*time.Millisecond)
	v.SetDefault("server.backend_url", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", time.Hour)

	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("match.board_width", 12)
	v.SetDefault("match.board_height", 12)
	v.SetDefault("match.player_aura_max", 10)
	v.SetDefault("match.player_aura_regen", 2)
	v.SetDefault("match.unit_aura_max", 6)
	v.SetDefault("match.max_activations_per_phase", 2)
	v.SetDefault("match.global_move_quota", 0)
	v.SetDefault("match.player_move_quota", 3)
	v.SetDefault("match.opening_budget_seconds", 30.0)
	v.SetDefault("match.movement_budget_seconds", 45.0)
	v.SetDefault("match.aura_budget_seconds", 30.0)
	v.SetDefault("match.catalog_path", "")

	v.SetDefault("replay.enabled", false)
	v.SetDefault("replay.dir", "replays")

	v.SetEnvPrefix("AURAGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			// A missing file means defaults; anything else is fatal.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Match.BoardWidth < 1 || c.Match.BoardHeight < 1 {
		return fmt.Errorf("board dimensions must be positive, got %dx%d", c.Match.BoardWidth, c.Match.BoardHeight)
	}
	if c.Match.PlayerAuraMax < 0 || c.Match.UnitAuraMax < 0 {
		return fmt.Errorf("aura pool maximums must not be negative")
	}
	if c.Server.MaxSessions < 1 {
		return fmt.Errorf("server.max_sessions must be at least 1, got %d", c.Server.MaxSessions)
	}
	return nil
}
