package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

const (
	StateBackendFile = "file"
	StateBackendDB   = "db"

	CandleSourceBinance = "binance"
	CandleSourceArchive = "archive"
)

type Config struct {
	Path    string `envconfig:"CONFIG_PATH" default:"config/strategy.yaml"`
	Profile string `envconfig:"PROFILE"`

	StateBackend string `envconfig:"STATE_BACKEND" default:"file"` // "file" or "db"
	StatePath    string `envconfig:"STATE_PATH" default:"state/stability.json"`

	CandleSource   string `envconfig:"CANDLE_SOURCE" default:"binance"` // "binance" or "archive"
	ArchiveCandles bool   `envconfig:"ARCHIVE_CANDLES" default:"false"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
