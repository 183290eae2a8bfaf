package report

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Dir string `envconfig:"REPORT_DIR" default:"reports"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
