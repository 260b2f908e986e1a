package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by the crawler.
const (
	EnvGridUsername  = "BROWSERSTACK_USERNAME"
	EnvGridAccessKey = "BROWSERSTACK_ACCESS_KEY"
	EnvRapidAPIKey   = "RAPIDAPI_KEY"
	EnvFile          = "ENV_FILE"
)

// LoadEnvFiles loads .env files into the process environment. When ENV_FILE
// is set only that file is read; otherwise .env.local then .env. Variables
// already present in the environment are never overwritten.
func LoadEnvFiles() error {
	if envFile := os.Getenv(EnvFile); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// ApplyEnv copies secrets from the environment into the configuration.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		return
	}
	if v, ok := lookup(EnvGridUsername); ok && strings.TrimSpace(v) != "" {
		c.Browser.Remote.Username = v
	}
	if v, ok := lookup(EnvGridAccessKey); ok && strings.TrimSpace(v) != "" {
		c.Browser.Remote.AccessKey = v
	}
	if v, ok := lookup(EnvRapidAPIKey); ok && strings.TrimSpace(v) != "" {
		c.Translation.RapidAPI.APIKey = v
	}
}
