package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Load fills cfg from the environment using its `env` / `env-default` tags.
// When dotenvFiles are given, each existing file is loaded first without
// overriding variables that are already set.
func Load(cfg any, dotenvFiles ...string) error {
	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Describe renders the environment variables understood by cfg, for -help output.
func Describe(cfg any, header string) string {
	text, err := cleanenv.GetDescription(cfg, &header)
	if err != nil {
		return header
	}
	return text
}

// ValidatePort checks that v is a usable TCP port; key names the setting in the error.
func ValidatePort(key, v string) error {
	p, err := strconv.Atoi(v)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("%s must be a valid TCP port (got %q)", key, v)
	}
	return nil
}
