package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment keys read before the PLACAR_ prefix scan.
const (
	EnvPrefix     = "PLACAR_"
	EnvConfigFile = "PLACAR_CONFIG"
	EnvDotenvFile = "PLACAR_ENV_FILE"
)

const defaultDotenvFile = ".env"

// Load builds a Config by layering defaults, .env, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. .env file (PLACAR_ENV_FILE, default ./.env); never overrides the real environment
//  3. file (YAML) if PLACAR_CONFIG is set
//  4. env (prefix PLACAR_)
func Load(_ context.Context) (*Config, error) {
	dotenv := os.Getenv(EnvDotenvFile)
	if dotenv == "" {
		dotenv = defaultDotenvFile
	}
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w: %w", dotenv, ErrLoadConfig, err)
	}

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", path, ErrLoadConfig, err)
		}
	}

	// PLACAR_QUEUE_SIZE -> queue_size; keys stay flat to match the koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("env: %w: %w", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal: %w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
