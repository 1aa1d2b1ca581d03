// Package config reads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/listingops/curator/internal/resolver"
)

const (
	DefaultRunHistory = 200
	DefaultPort       = "8888"
)

type Config struct {
	MinImages        int    `mapstructure:"CURATOR_MIN_IMAGES"`
	DefaultSpecIndex int    `mapstructure:"CURATOR_DEFAULT_SPEC_INDEX"`
	TemplatesPath    string `mapstructure:"CURATOR_TEMPLATES"`
	RunHistory       int    `mapstructure:"CURATOR_RUN_HISTORY"`
	Port             string `mapstructure:"PORT"`
}

var keys = []string{
	"CURATOR_MIN_IMAGES",
	"CURATOR_DEFAULT_SPEC_INDEX",
	"CURATOR_TEMPLATES",
	"CURATOR_RUN_HISTORY",
	"PORT",
}

func Default() Config {
	return Config{
		MinImages:        resolver.DefaultMinImages,
		DefaultSpecIndex: resolver.DefaultSpecIndex,
		RunHistory:       DefaultRunHistory,
		Port:             DefaultPort,
	}
}

// FromEnv overlays set environment variables on Default. Empty variables are
// treated as unset.
func FromEnv() (Config, error) {
	return FromMap(lookupEnv())
}

// FromMap overlays values on Default. Numeric settings may be strings.
func FromMap(values map[string]string) (Config, error) {
	cfg := Default()

	input := make(map[string]any, len(values))
	for k, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		input[k] = v
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, fmt.Errorf("failed to create config decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return cfg, fmt.Errorf("failed to read configuration: %w", err)
	}

	if cfg.MinImages < 0 {
		return cfg, fmt.Errorf("CURATOR_MIN_IMAGES must not be negative, got %d", cfg.MinImages)
	}
	if cfg.DefaultSpecIndex < 0 {
		return cfg, fmt.Errorf("CURATOR_DEFAULT_SPEC_INDEX must not be negative, got %d", cfg.DefaultSpecIndex)
	}
	if cfg.RunHistory <= 0 {
		cfg.RunHistory = DefaultRunHistory
	}
	return cfg, nil
}

// ResolverOptions returns the resolver settings carried by c.
func (c Config) ResolverOptions() resolver.Options {
	return resolver.Options{
		MinImages:        c.MinImages,
		DefaultSpecIndex: c.DefaultSpecIndex,
	}
}

func lookupEnv() map[string]string {
	values := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			values[k] = v
		}
	}
	return values
}
