// Package config loads the demo server's settings: a JSON file on disk,
// overridden by environment variables, the way the cmd/memex tools layer
// os.Getenv over a defaulted struct and the root-level CLI layers a JSON
// config file under ~/.config.
package config

import (
	"encoding/json"
	"os"
)

// Config holds cmd/substance-server's settings.
type Config struct {
	Port              string `json:"port"`
	SqlitePath        string `json:"sqlite_path"`
	SchemaName        string `json:"schema_name"`
	ForceTransactions bool   `json:"force_transactions"`
}

// Default returns the server's built-in defaults.
func Default() Config {
	return Config{
		Port:       "8080",
		SqlitePath: "substance.db",
		SchemaName: "article",
	}
}

// Load reads path if it exists (ignored entirely if absent), then applies
// environment variable overrides on top: SUBSTANCE_PORT, SUBSTANCE_SQLITE_PATH,
// SUBSTANCE_SCHEMA_NAME, SUBSTANCE_FORCE_TRANSACTIONS.
func Load(path string) (Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	} else if !os.IsNotExist(err) {
		return Config{}, err
	}

	if v := os.Getenv("SUBSTANCE_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("SUBSTANCE_SQLITE_PATH"); v != "" {
		cfg.SqlitePath = v
	}
	if v := os.Getenv("SUBSTANCE_SCHEMA_NAME"); v != "" {
		cfg.SchemaName = v
	}
	if v := os.Getenv("SUBSTANCE_FORCE_TRANSACTIONS"); v == "1" || v == "true" {
		cfg.ForceTransactions = true
	}
	return cfg, nil
}
