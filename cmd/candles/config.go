package candles

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"signalengine/src/model"
)

type Config struct {
	StartDt    time.Time `envconfig:"START_DATE" default:"2025-01-01T00:00:00Z"`
	EndDt      time.Time `envconfig:"END_DATE"`
	Timeframes string    `envconfig:"TIMEFRAMES" default:"5m,15m,1h,1d"`
	Symbols    string    `envconfig:"SYMBOLS" default:"BTC/USDT"`
	AutoMode   bool      `envconfig:"AUTO_MODE" default:"false"`
	Limit      int       `envconfig:"LIMIT" default:"1000"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}

// ParseTimeframes splits a comma list and rejects unknown timeframes.
func ParseTimeframes(raw string) ([]model.Timeframe, error) {
	var out []model.Timeframe
	for _, part := range strings.Split(raw, ",") {
		tf := model.Timeframe(strings.ToLower(strings.TrimSpace(part)))
		if tf == "" {
			continue
		}
		if tf.BarDuration() == 0 {
			return nil, fmt.Errorf("unsupported timeframe %q", part)
		}
		out = append(out, tf)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no timeframe configured")
	}
	return out, nil
}

func splitSymbols(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
