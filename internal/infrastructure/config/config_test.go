package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 25, cfg.Database.MaxConns)
	assert.Equal(t, 24*time.Hour, cfg.Security.TokenExpiry)
	assert.Equal(t, 10, cfg.Security.FramesPerSecond)

	assert.Equal(t, 30000, cfg.Auction.InitialBidMs)
	assert.Equal(t, 10000, cfg.Auction.AntiSnipeThresholdMs)
	assert.Equal(t, 15000, cfg.Auction.AntiSnipeExtensionMs)
	assert.Equal(t, int64(1), cfg.Auction.MinIncrement)
	assert.Equal(t, []string{"GK", "DEF", "MID", "ATT"}, cfg.Auction.CategoryOrder)
	assert.InDelta(t, 0.6, cfg.Auction.DislikeFraction, 0.001)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AUCTION_SERVER__PORT", "9090")
	t.Setenv("AUCTION_LOG_LEVEL", "debug")
	t.Setenv("AUCTION_SECURITY__JWT_SECRET", "from-env")
	t.Setenv("AUCTION_DATABASE__URL", "postgres://env/db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "from-env", cfg.Security.JWTSecret)
	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
}
