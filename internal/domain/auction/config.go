package auction

import (
	"time"

	"github.com/draftroom/squad-auction-backend/internal/domain/values"
)

// Config holds the per-auction knobs resolved at Start time.
type Config struct {
	InitialBid         time.Duration  `json:"initial_bid_ms"`
	AntiSnipeThreshold time.Duration  `json:"anti_snipe_threshold_ms"`
	AntiSnipeExtension time.Duration  `json:"anti_snipe_extension_ms"`
	MinIncrement       values.Money   `json:"min_increment"`
	CategoryOrder      []string       `json:"category_order"`
	DislikeFraction    float64        `json:"dislike_fraction"`
}

// DefaultConfig returns the standard contest parameters.
func DefaultConfig() Config {
	return Config{
		InitialBid:         30 * time.Second,
		AntiSnipeThreshold: 10 * time.Second,
		AntiSnipeExtension: 15 * time.Second,
		MinIncrement:       values.NewMoneyFromInt(1),
		CategoryOrder:      []string{"GK", "DEF", "MID", "ATT"},
		DislikeFraction:    0.6,
	}
}

// Normalize fills zero-valued fields with defaults. Partial configs arrive
// from the persisted auction document and from the create request.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.InitialBid <= 0 {
		c.InitialBid = def.InitialBid
	}
	if c.AntiSnipeThreshold <= 0 {
		c.AntiSnipeThreshold = def.AntiSnipeThreshold
	}
	if c.AntiSnipeExtension <= 0 {
		c.AntiSnipeExtension = def.AntiSnipeExtension
	}
	if !c.MinIncrement.IsPositive() {
		c.MinIncrement = def.MinIncrement
	}
	if len(c.CategoryOrder) == 0 {
		c.CategoryOrder = append([]string(nil), def.CategoryOrder...)
	}
	if c.DislikeFraction <= 0 || c.DislikeFraction > 1 {
		c.DislikeFraction = def.DislikeFraction
	}
	return c
}
