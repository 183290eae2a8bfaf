package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BinanceEndpoint string        `envconfig:"BINANCE_ENDPOINT" default:"https://api.binance.com"`
	KlineTimeout    time.Duration `envconfig:"KLINE_TIMEOUT" default:"15s"`
	KlineQuote      string        `envconfig:"KLINE_QUOTE" default:"USDT"`

	DiscordWebhookURL string        `envconfig:"DISCORD_WEBHOOK_URL"`
	DiscordPerMinute  int           `envconfig:"DISCORD_PER_MINUTE" default:"30"`
	DiscordTimeout    time.Duration `envconfig:"DISCORD_TIMEOUT" default:"15s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
