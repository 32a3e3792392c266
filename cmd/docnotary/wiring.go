package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bitfsorg/docnotary-go/authenticity"
	"github.com/bitfsorg/docnotary-go/blobstore"
	"github.com/bitfsorg/docnotary-go/config"
	"github.com/bitfsorg/docnotary-go/logger"
	"github.com/bitfsorg/docnotary-go/notary"
	"github.com/bitfsorg/docnotary-go/paymail"
	"github.com/bitfsorg/docnotary-go/registry"
	"github.com/bitfsorg/docnotary-go/registryapi"
	"github.com/bitfsorg/docnotary-go/signer"
	"github.com/bitfsorg/docnotary-go/wallet"
)

// Files inside the data directory.
const (
	boltFileName   = "registry.db"
	sqliteFileName = "registry.sqlite"
	blobDirName    = "blobs"
)

// env wires the collaborators for one command invocation.
type env struct {
	cfg     config.Config
	net     signer.Network
	log     *logger.Logger
	closers []func() error
}

func newEnv(cfg config.Config, stderr io.Writer) (*env, error) {
	net, err := cfg.SignerNetwork()
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, net: net}

	if cfg.LogFile == "" {
		e.log = logger.NewConsole("docnotary", cfg.LogLevel, stderr)
		return e, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	e.closers = append(e.closers, f.Close)
	e.log = logger.New("docnotary", cfg.LogLevel, f)
	return e, nil
}

// Close releases everything opened through e, newest first.
func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	e.closers = nil
	return errors.Join(errs...)
}

// localRegistry opens the configured on-disk or in-memory registry.
func (e *env) localRegistry() (*registry.Registry, error) {
	var store registry.Store
	switch e.cfg.RegistryBackend {
	case config.RegistryMemory:
		store = registry.NewMemStore()
	case config.RegistryBolt:
		s, err := registry.OpenBoltStore(filepath.Join(e.cfg.DataDir, boltFileName))
		if err != nil {
			return nil, err
		}
		store = s
	case config.RegistrySQLite:
		if err := os.MkdirAll(e.cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		s, err := registry.OpenSQLStore(filepath.Join(e.cfg.DataDir, sqliteFileName))
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("%w: %q is not a local registry", config.ErrInvalidBackend, e.cfg.RegistryBackend)
	}

	reg := registry.New(store, registry.WithLogger(e.log), registry.WithNetwork(e.net))
	e.closers = append(e.closers, reg.Close)
	return reg, nil
}

// ledger returns the local registry or a client for the remote one.
func (e *env) ledger() (registry.Ledger, error) {
	if e.cfg.RegistryBackend != config.RegistryRemote {
		return e.localRegistry()
	}
	return registryapi.NewClient(registryapi.ClientConfig{
		BaseURL: e.cfg.RegistryURL,
		Timeout: e.cfg.RequestTimeout,
	})
}

// blobs returns the local FileStore, or the pinning service behind a local
// read cache.
func (e *env) blobs() (blobstore.Store, error) {
	local, err := blobstore.NewFileStore(filepath.Join(e.cfg.DataDir, blobDirName))
	if err != nil {
		return nil, err
	}
	if e.cfg.BlobBackend != config.BlobPinning {
		return local, nil
	}

	pin, err := blobstore.NewPinningStore(blobstore.PinningConfig{
		APIURL:     e.cfg.PinningURL,
		GatewayURL: e.cfg.GatewayURL,
		Token:      e.cfg.PinningToken,
		Timeout:    e.cfg.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}
	return blobstore.NewCachedStore(local, pin, e.log), nil
}

// resolver resolves claimed identities, including paymail handles and domain
// bindings.
func (e *env) resolver() authenticity.IdentityResolver {
	var dns paymail.DNSResolver = paymail.DefaultDNSResolver
	if e.cfg.DNSSEC {
		dns = paymail.NewDNSSECResolver(e.cfg.DNSUpstream)
	}
	return paymail.NewResolver(dns, e.net, paymail.WithTimeout(e.cfg.RequestTimeout))
}

// signer opens the identity key file. It returns nil without error when no
// wallet password was given, so read-only commands work without one.
func (e *env) signer(walletPassword string) (signer.Signer, error) {
	if walletPassword == "" {
		return nil, nil
	}
	s, err := wallet.LoadSigner(e.cfg.DataDir, walletPassword, e.net)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// notary assembles the pipeline.
func (e *env) notary(walletPassword string) (*notary.Notary, error) {
	ledger, err := e.ledger()
	if err != nil {
		return nil, err
	}
	blobs, err := e.blobs()
	if err != nil {
		return nil, err
	}
	s, err := e.signer(walletPassword)
	if err != nil {
		return nil, err
	}
	return notary.New(ledger, blobs, s, authenticity.NewChecker(e.resolver()), e.log), nil
}
