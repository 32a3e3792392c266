// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads docnotary settings from a key=value file in the data
// directory, overlaid with DOCNOTARY_* environment variables.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bitfsorg/docnotary-go/signer"
)

// Registry backends.
const (
	RegistryBolt   = "bolt"
	RegistrySQLite = "sqlite"
	RegistryMemory = "memory"
	RegistryRemote = "remote"
)

// Blob backends.
const (
	BlobFile    = "file"
	BlobPinning = "pinning"
)

// Config holds all docnotary settings.
type Config struct {
	DataDir         string        `env:"DATADIR"`
	Network         string        `env:"NETWORK"`
	ListenAddr      string        `env:"LISTEN"`
	LogLevel        string        `env:"LOGLEVEL"`
	LogFile         string        `env:"LOGFILE"`
	RegistryBackend string        `env:"REGISTRY"`
	RegistryURL     string        `env:"REGISTRY_URL"`
	BlobBackend     string        `env:"BLOBS"`
	PinningURL      string        `env:"PINNING_URL"`
	GatewayURL      string        `env:"GATEWAY_URL"`
	PinningToken    string        `env:"PINNING_TOKEN"`
	RequestTimeout  time.Duration `env:"TIMEOUT"`
	DNSUpstream     string        `env:"DNS_UPSTREAM"`
	DNSSEC          bool          `env:"DNSSEC"`
}

// DefaultDataDir returns ~/.docnotary, or .docnotary in the working directory
// when the home directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docnotary"
	}
	return filepath.Join(home, ".docnotary")
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:         DefaultDataDir(),
		Network:         "mainnet",
		ListenAddr:      ":8080",
		LogLevel:        "info",
		LogFile:         "",
		RegistryBackend: RegistryBolt,
		BlobBackend:     BlobFile,
		RequestTimeout:  30 * time.Second,
	}
}

// ConfigPath returns the configuration file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// SignerNetwork maps Network to the address encoding. Regtest uses testnet
// addresses.
func (c Config) SignerNetwork() (signer.Network, error) {
	n, err := signer.ParseNetwork(c.Network)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidNetwork, err)
	}
	return n, nil
}

// LoadConfig reads a key=value file at path. Keys not present in the file
// keep their defaults; unknown keys are ignored so newer files still load.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	cfg := DefaultConfig()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := parseKeyValue(line)
		if !ok {
			return Config{}, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		if err := cfg.set(key, value); err != nil {
			return Config{}, fmt.Errorf("%w: line %d: %w", ErrInvalidConfigLine, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// parseKeyValue splits "key = value" on the first '='.
func parseKeyValue(line string) (string, string, bool) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(value), true
}

func (c *Config) set(key, value string) error {
	switch key {
	case "datadir":
		c.DataDir = value
	case "network":
		c.Network = value
	case "listen":
		c.ListenAddr = value
	case "loglevel":
		c.LogLevel = value
	case "logfile":
		c.LogFile = value
	case "registry":
		c.RegistryBackend = value
	case "registryurl":
		c.RegistryURL = value
	case "blobs":
		c.BlobBackend = value
	case "pinningurl":
		c.PinningURL = value
	case "gatewayurl":
		c.GatewayURL = value
	case "pinningtoken":
		c.PinningToken = value
	case "dnsupstream":
		c.DNSUpstream = value
	case "timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		c.RequestTimeout = d
	case "dnssec":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("dnssec: %w", err)
		}
		c.DNSSEC = b
	}
	return nil
}

// SaveConfig writes cfg to path, creating parent directories. The file may
// hold a pinning token, so it is written with mode 0600.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# docnotary configuration\n\n")
	write := func(key, value string) {
		fmt.Fprintf(&b, "%s = %s\n", key, value)
	}
	write("datadir", cfg.DataDir)
	write("network", cfg.Network)
	write("listen", cfg.ListenAddr)
	write("loglevel", cfg.LogLevel)
	write("logfile", cfg.LogFile)
	b.WriteString("\n# registry: bolt, sqlite, memory or remote\n")
	write("registry", cfg.RegistryBackend)
	write("registryurl", cfg.RegistryURL)
	b.WriteString("\n# blobs: file or pinning\n")
	write("blobs", cfg.BlobBackend)
	write("pinningurl", cfg.PinningURL)
	write("gatewayurl", cfg.GatewayURL)
	write("pinningtoken", cfg.PinningToken)
	write("timeout", cfg.RequestTimeout.String())
	b.WriteString("\n")
	write("dnsupstream", cfg.DNSUpstream)
	write("dnssec", strconv.FormatBool(cfg.DNSSEC))

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
