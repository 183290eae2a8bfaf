package dedup

import (
	"time"

	"signalengine/src/model"
)

// Cooldown blocks new probe entries for a symbol during Window after any close.
type Cooldown struct {
	Window time.Duration

	lastClose map[string]time.Time
}

func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{Window: window, lastClose: make(map[string]time.Time)}
}

func (c *Cooldown) Start(symbol string, closedAt time.Time) {
	c.lastClose[model.NormalizeSymbol(symbol)] = closedAt
}

// Active is true while now is strictly less than Window after the last close.
func (c *Cooldown) Active(symbol string, now time.Time) bool {
	return c.Remaining(symbol, now) > 0
}

func (c *Cooldown) Remaining(symbol string, now time.Time) time.Duration {
	last, ok := c.lastClose[model.NormalizeSymbol(symbol)]
	if !ok {
		return 0
	}
	elapsed := now.Sub(last)
	if elapsed >= c.Window {
		return 0
	}
	return c.Window - elapsed
}
