// Package config handles ember.toml CLI configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the config file looked up in the working directory.
const FileName = "ember.toml"

// Config is the decoded ember.toml.
type Config struct {
	REPL REPL `toml:"repl"`
	Run  Run  `toml:"run"`
	Log  Log  `toml:"log"`
}

// REPL configures the interactive session.
type REPL struct {
	Prompt       string `toml:"prompt"`
	Continuation string `toml:"continuation"`
	History      string `toml:"history"`
}

// Run configures script execution defaults.
type Run struct {
	Trace       bool `toml:"trace"`
	Disassemble bool `toml:"disassemble"`
}

// Log configures logging.
type Log struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		REPL: REPL{
			Prompt:       "ember> ",
			Continuation: "  ... ",
			History:      filepath.Join(os.TempDir(), ".ember_history"),
		},
		Log: Log{Level: "warning"},
	}
}

// Load reads ember.toml from dir, falling back to defaults when the file
// does not exist. Fields absent from the file keep their defaults.
func Load(dir string) (*Config, error) {
	cfg := Default()
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
