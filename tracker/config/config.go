// Package config reads tracker settings from a TOML file.  Settings given in the environment take precedence; see the
// serve task.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// ListenConfig is where the host listens for clients.
type ListenConfig struct {
	Network string `toml:"network"`
	Address string `toml:"address"`
}

// ScanConfig selects the files searched for TODO and FIXME markers.
type ScanConfig struct {
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
	NoWatch bool     `toml:"noWatch"`
}

// LoggingConfig adjusts logging.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Config holds every tracker setting.
type Config struct {
	Root     string        `toml:"root"`     // workspace directory
	Database string        `toml:"database"` // SQLite file; empty keeps state in memory
	WWW      string        `toml:"www"`      // static files served at /
	URL      string        `toml:"url"`      // websocket URL used by the call task
	Listen   ListenConfig  `toml:"listen"`
	Scan     ScanConfig    `toml:"scan"`
	Logging  LoggingConfig `toml:"logging"`
}

// Default returns the settings used when nothing else is specified.
func Default() Config {
	return Config{
		Root:    `.`,
		URL:     `ws://localhost:8080/rpc`,
		Listen:  ListenConfig{Network: `tcp`, Address: `localhost:8080`},
		Logging: LoggingConfig{Level: `info`},
	}
}

// Load reads settings from a TOML file on top of Default.  Unknown keys are an error, so typos do not go unnoticed.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf(`%w while parsing %v`, err, path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return cfg, fmt.Errorf(`unknown settings in %v: %v`, path, strings.Join(keys, `, `))
	}
	return cfg, cfg.Validate()
}

// Validate checks that the settings can be used.
func (cfg *Config) Validate() error {
	if cfg.Listen.Network == `` {
		cfg.Listen.Network = `tcp`
	}
	if cfg.Listen.Address == `` {
		if cfg.Listen.Network != `tcp` {
			return errors.New(`listen.address must be specified for a listen.network other than "tcp"`)
		}
		cfg.Listen.Address = `localhost:8080`
	}
	_, err := cfg.Level()
	return err
}

// Level returns the logging level.
func (cfg *Config) Level() (zerolog.Level, error) {
	if cfg.Logging.Level == `` {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return level, fmt.Errorf(`%w in logging.level`, err)
	}
	return level, nil
}
