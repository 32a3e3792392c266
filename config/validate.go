// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.Network != "mainnet" && cfg.Network != "testnet" && cfg.Network != "regtest" {
		return ErrInvalidNetwork
	}

	if err := validateAddr(cfg.ListenAddr); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidListenAddr, err)
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	switch cfg.RegistryBackend {
	case RegistryBolt, RegistrySQLite, RegistryMemory:
	case RegistryRemote:
		if !validURL(cfg.RegistryURL) {
			return fmt.Errorf("%w: registryurl %q", ErrMissingURL, cfg.RegistryURL)
		}
	default:
		return fmt.Errorf("%w: registry %q", ErrInvalidBackend, cfg.RegistryBackend)
	}

	switch cfg.BlobBackend {
	case BlobFile:
	case BlobPinning:
		for _, u := range []string{cfg.PinningURL, cfg.GatewayURL} {
			if u != "" && !validURL(u) {
				return fmt.Errorf("%w: %q", ErrMissingURL, u)
			}
		}
	default:
		return fmt.Errorf("%w: blobs %q", ErrInvalidBackend, cfg.BlobBackend)
	}

	if cfg.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if cfg.DNSUpstream != "" {
		if err := validateAddr(cfg.DNSUpstream); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDNSUpstream, err)
		}
	}

	return nil
}

// validateAddr checks that addr is a valid host:port address.
func validateAddr(addr string) error {
	_, _, err := net.SplitHostPort(addr)
	return err
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
