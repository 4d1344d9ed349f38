package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// RELAY_ADDR points at a running relay, e.g. "localhost:3000".
	// Scenarios are skipped when it is unset.
	RelayAddr string `envconfig:"RELAY_ADDR"`
	// E2E_DEBUG_JSON allows dumping full frame bodies as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
