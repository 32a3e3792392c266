package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bitfsorg/docnotary-go/authenticity"
	"github.com/bitfsorg/docnotary-go/config"
	"github.com/bitfsorg/docnotary-go/digest"
	"github.com/bitfsorg/docnotary-go/notary"
	"github.com/bitfsorg/docnotary-go/registry"
	"github.com/bitfsorg/docnotary-go/registryapi"
	"github.com/bitfsorg/docnotary-go/signer"
	"github.com/bitfsorg/docnotary-go/wallet"
)

func runInit(_ context.Context, args []string, stdout, stderr io.Writer) error {
	fs, g := newFlagSet("init", stderr)
	network := fs.String("network", "mainnet", "network: mainnet, testnet or regtest")
	words := fs.Int("words", 12, "mnemonic length: 12 or 24 words")
	mnemonic := fs.String("mnemonic", "", "restore from an existing mnemonic instead of generating one")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}
	g.resolve()
	if g.walletPassword == "" {
		return fmt.Errorf("%w: --wallet-password is required", errUsage)
	}

	cfgPath := config.ConfigPath(g.dataDir)
	cfg, err := config.LoadConfig(cfgPath)
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		cfg = config.DefaultConfig()
		cfg.DataDir = g.dataDir
		cfg.Network = *network
		if err := config.ValidateConfig(cfg); err != nil {
			return err
		}
		if err := config.SaveConfig(cfgPath, cfg); err != nil {
			return err
		}
	case err != nil:
		return err
	}
	net, err := cfg.SignerNetwork()
	if err != nil {
		return err
	}

	phrase := *mnemonic
	if phrase == "" {
		bits := wallet.Mnemonic12Words
		if *words == 24 {
			bits = wallet.Mnemonic24Words
		} else if *words != 12 {
			return fmt.Errorf("%w: --words must be 12 or 24", errUsage)
		}
		if phrase, err = wallet.GenerateMnemonic(bits); err != nil {
			return err
		}
	}

	if err := wallet.InitKeyFile(g.dataDir, phrase, g.walletPassword); err != nil {
		return err
	}
	s, err := wallet.LoadSigner(g.dataDir, g.walletPassword, net)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "identity: %s\n", s.Identity().Address())
	fmt.Fprintf(stdout, "key file: %s\n", wallet.KeyFilePath(g.dataDir))
	if *mnemonic == "" {
		fmt.Fprintf(stdout, "mnemonic: %s\n", phrase)
		fmt.Fprintln(stdout, "Write the mnemonic down; it is the only way to recover this identity.")
	}
	return nil
}

func runRegister(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, g := newFlagSet("register", stderr)
	modeFlag := fs.String("mode", "password", "encryption mode: password or signer")
	password := fs.String("password", "", "document password (password mode)")
	unsigned := fs.Bool("unsigned", false, "register without an attestation signature")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	mode, err := notary.ParseMode(*modeFlag)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	data, err := os.ReadFile(rest[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", rest[0], err)
	}

	e, err := g.loadEnv(stderr)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()
	n, err := e.notary(g.walletPassword)
	if err != nil {
		return err
	}

	reg, err := n.Register(ctx, notary.RegisterRequest{
		Filename: filepath.Base(rest[0]),
		Data:     data,
		Mode:     mode,
		Password: *password,
		Unsigned: *unsigned,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "digest:    %s\n", reg.Receipt.Digest)
	fmt.Fprintf(stdout, "owner:     %s\n", reg.Receipt.Owner)
	fmt.Fprintf(stdout, "locator:   %s\n", reg.Receipt.Locator)
	fmt.Fprintf(stdout, "timestamp: %s\n", reg.Receipt.Timestamp.Format(time.RFC3339))
	if reg.Signature != nil {
		fmt.Fprintf(stdout, "signature: %s\n", signer.EncodeSignature(reg.Signature))
	}
	return nil
}

func runRetrieve(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, g := newFlagSet("retrieve", stderr)
	modeFlag := fs.String("mode", "password", "encryption mode: password or signer")
	password := fs.String("password", "", "document password (password mode)")
	out := fs.String("out", "", "output path (default: the registered file name in the working directory)")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	mode, err := notary.ParseMode(*modeFlag)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	d, err := digest.Parse(rest[0])
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	e, err := g.loadEnv(stderr)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()
	n, err := e.notary(g.walletPassword)
	if err != nil {
		return err
	}

	res, err := n.Retrieve(ctx, notary.RetrieveRequest{Digest: d, Mode: mode, Password: *password})
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = filepath.Base(res.Document.Name)
		if path == "." || path == string(filepath.Separator) || path == "" {
			path = d.Hex()
		}
	}
	if err := os.WriteFile(path, res.Document.Data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Fprintf(stdout, "file:      %s\n", path)
	fmt.Fprintf(stdout, "name:      %s\n", res.Document.Name)
	fmt.Fprintf(stdout, "owner:     %s\n", res.Record.Owner)
	fmt.Fprintf(stdout, "timestamp: %s\n", res.Record.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(stdout, "authenticity: %s\n", res.Outcome)
	return nil
}

func runCheck(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, g := newFlagSet("check", stderr)
	claimed := fs.String("claimed", "", "claimed signer: address, public key, paymail or domain (default: record owner)")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}

	d, err := targetDigest(rest[0])
	if err != nil {
		return err
	}

	e, err := g.loadEnv(stderr)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()
	n, err := e.notary("")
	if err != nil {
		return err
	}

	res, err := n.CheckDigest(ctx, d, *claimed)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "digest:    %s\n", res.Digest)
	if !res.Registered {
		fmt.Fprintln(stdout, "registered: no")
		return nil
	}
	fmt.Fprintln(stdout, "registered: yes")
	fmt.Fprintf(stdout, "owner:     %s\n", res.Record.Owner)
	fmt.Fprintf(stdout, "timestamp: %s\n", res.Record.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(stdout, "authenticity: %s\n", res.Outcome)
	if res.Outcome == authenticity.SignatureMismatch {
		return errSignatureMismatch
	}
	return nil
}

var errSignatureMismatch = errors.New("signature does not belong to the claimed identity")

// targetDigest hashes the file at arg, or parses arg as a digest when no
// such file exists.
func targetDigest(arg string) (digest.Digest, error) {
	if _, err := os.Stat(arg); err == nil {
		return digest.SumFile(arg)
	}
	d, err := digest.Parse(arg)
	if err != nil {
		return digest.Digest{}, fmt.Errorf("%w: %q is neither a file nor a digest", errUsage, arg)
	}
	return d, nil
}

func runList(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, g := newFlagSet("list", stderr)
	owner := fs.String("owner", "", "owner identity (default: this wallet's identity)")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}

	e, err := g.loadEnv(stderr)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	walletPassword := ""
	if *owner == "" {
		walletPassword = g.walletPassword
	}
	n, err := e.notary(walletPassword)
	if err != nil {
		return err
	}

	recs, err := n.List(ctx, *owner)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		fmt.Fprintf(stdout, "%s  %s  %s\n", rec.Timestamp.Format(time.RFC3339), rec.Digest, signedMark(rec))
	}
	return nil
}

func signedMark(rec *registry.Record) string {
	if rec.Signature.Present {
		return "signed"
	}
	return "unsigned"
}

func runServe(ctx context.Context, args []string, _, stderr io.Writer) error {
	fs, g := newFlagSet("serve", stderr)
	listen := fs.String("listen", "", "listen address (default: configured listen address)")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}

	e, err := g.loadEnv(stderr)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	reg, err := e.localRegistry()
	if err != nil {
		return err
	}
	addr := e.cfg.ListenAddr
	if *listen != "" {
		addr = *listen
	}
	return registryapi.NewServer(reg, e.log).ListenAndServe(ctx, addr)
}
