package main

import (
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/iov-one/escrowd/commands/server"
	"github.com/iov-one/escrowd/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// Config holds the node settings. Values are read from the environment
// and may be overridden by command line flags.
type Config struct {
	Home     string `env:"ESCROWD_HOME"`
	Bind     string `env:"ESCROWD_BIND"`
	LogLevel string `env:"ESCROWD_LOG_LEVEL"`
	Debug    bool   `env:"ESCROWD_DEBUG"`
	// EventsDB is the path of the SQLite event log. Empty disables it.
	EventsDB string `env:"ESCROWD_EVENTS_DB"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Home:     filepath.Join(os.ExpandEnv("$HOME"), ".escrowd"),
		Bind:     server.DefaultBind,
		LogLevel: "info",
	}
}

// LoadConfig applies the environment on top of the defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrapf(errors.ErrInvalidInput, "parse env: %s", err)
	}
	return cfg, nil
}

// Logger returns the node logger filtered by the configured level.
func (c Config) Logger() (log.Logger, error) {
	opt, err := log.AllowLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	logger := log.NewTMLogger(log.NewSyncWriter(os.Stdout)).With("module", "escrowd")
	return log.NewFilter(logger, opt), nil
}
