// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "DOCNOTARY_"

// ApplyEnv overlays DOCNOTARY_* environment variables on cfg. Only variables
// that are set and non-empty override; a false DOCNOTARY_DNSSEC cannot turn
// off DNSSEC enabled in the file.
func ApplyEnv(cfg Config) (Config, error) {
	var fromEnv Config
	if err := env.ParseWithOptions(&fromEnv, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidEnv, err)
	}
	if err := mergo.Merge(&cfg, fromEnv, mergo.WithOverride); err != nil {
		return Config{}, fmt.Errorf("config: merge environment: %w", err)
	}
	return cfg, nil
}

// Load resolves the effective configuration for dataDir: defaults, then the
// config file when present, then the environment. The result is validated.
func Load(dataDir string) (Config, error) {
	cfg, err := LoadConfig(ConfigPath(dataDir))
	switch {
	case errors.Is(err, ErrConfigNotFound):
		cfg = DefaultConfig()
		cfg.DataDir = dataDir
	case err != nil:
		return Config{}, err
	}

	cfg, err = ApplyEnv(cfg)
	if err != nil {
		return Config{}, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
