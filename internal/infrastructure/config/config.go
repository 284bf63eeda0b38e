package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Security  SecurityConfig  `koanf:"security"`
	Telemetry TelemetryConfig `koanf:"telemetry"`

	Auction AuctionDefaults `koanf:"auction"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxConns        int           `koanf:"max_conns"`
	MinConns        int           `koanf:"min_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL      string `koanf:"url"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type SecurityConfig struct {
	JWTSecret   string        `koanf:"jwt_secret"`
	TokenExpiry time.Duration `koanf:"token_expiry"`

	// Per-connection inbound frame budget on the socket adapter.
	FramesPerSecond int `koanf:"frames_per_second"`
	FrameBurst      int `koanf:"frame_burst"`
}

type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	OTLPEndpoint string `koanf:"otlp_endpoint"`
}

// AuctionDefaults seeds per-auction config when the create request leaves
// fields unset.
type AuctionDefaults struct {
	InitialBidMs         int      `koanf:"initial_bid_ms"`
	AntiSnipeThresholdMs int      `koanf:"anti_snipe_threshold_ms"`
	AntiSnipeExtensionMs int      `koanf:"anti_snipe_extension_ms"`
	MinIncrement         int64    `koanf:"min_increment"`
	CategoryOrder        []string `koanf:"category_order"`
	DislikeFraction      float64  `koanf:"dislike_fraction"`
}

func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns:        25,
			MinConns:        5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			DB: 0,
		},
		Security: SecurityConfig{
			TokenExpiry:     24 * time.Hour,
			FramesPerSecond: 10,
			FrameBurst:      20,
		},
		Auction: AuctionDefaults{
			InitialBidMs:         30000,
			AntiSnipeThresholdMs: 10000,
			AntiSnipeExtensionMs: 15000,
			MinIncrement:         1,
			CategoryOrder:        []string{"GK", "DEF", "MID", "ATT"},
			DislikeFraction:      0.6,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Config file is optional.
	if err := k.Load(file.Provider("configs/config.yaml"), yaml.Parser()); err != nil {
		// Missing file is fine; env and defaults carry the rest.
	}

	// Double underscore nests (AUCTION_SERVER__PORT -> server.port);
	// single underscores stay part of the key (AUCTION_LOG_LEVEL ->
	// log_level).
	if err := k.Load(env.Provider("AUCTION_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "AUCTION_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
