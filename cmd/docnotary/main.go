// docnotary registers documents in a content-addressed notary registry and
// retrieves them with an authenticity check.
//
// Usage:
//
//	docnotary init     [--network mainnet|testnet|regtest] [--words 12|24]
//	docnotary register <file> [--mode password|signer] [--password P] [--unsigned]
//	docnotary retrieve <digest> [--mode password|signer] [--password P] [--out path]
//	docnotary check    <file|digest> [--claimed identity]
//	docnotary list     [--owner identity]
//	docnotary serve    [--listen addr]
//
// Every command accepts --datadir and --log-level. Commands that sign read
// the identity key file, unlocked with --wallet-password or
// DOCNOTARY_WALLET_PASSWORD.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bitfsorg/docnotary-go/config"
	"github.com/bitfsorg/docnotary-go/notary"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitRetryable = 75 // EX_TEMPFAIL
)

// walletPasswordEnv supplies the key file password when the flag is unset.
const walletPasswordEnv = "DOCNOTARY_WALLET_PASSWORD"

var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stderr)
		if len(args) == 0 {
			return exitUsage
		}
		return exitOK
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "error: unknown command %q\n\n", args[0])
		printUsage(stderr)
		return exitUsage
	}

	err := cmd(ctx, args[1:], stdout, stderr)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, pflag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	case notary.IsRetryable(err):
		fmt.Fprintf(stderr, "error: %v (temporary, retry later)\n", err)
		return exitRetryable
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
}

type command func(ctx context.Context, args []string, stdout, stderr io.Writer) error

var commands map[string]command

func init() {
	commands = map[string]command{
		"init":     runInit,
		"register": runRegister,
		"retrieve": runRetrieve,
		"check":    runCheck,
		"list":     runList,
		"serve":    runServe,
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `docnotary registers encrypted documents and checks their authenticity.

Usage:
  docnotary <command> [flags]

Commands:
  init      create the identity key file and default configuration
  register  encrypt, upload and register a document
  retrieve  fetch, decrypt and verify a registered document
  check     report whether a document is registered and who signed it
  list      list documents registered by an owner
  serve     run the HTTP registry server

Run "docnotary <command> --help" for command flags.
`)
}

// globalFlags are shared by every command.
type globalFlags struct {
	dataDir        string
	logLevel       string
	walletPassword string
}

func newFlagSet(name string, stderr io.Writer) (*pflag.FlagSet, *globalFlags) {
	g := &globalFlags{}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&g.dataDir, "datadir", "", "data directory (default: $DOCNOTARY_DATADIR or ~/.docnotary)")
	fs.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&g.walletPassword, "wallet-password", "", "identity key file password (default: $"+walletPasswordEnv+")")
	return fs, g
}

func (g *globalFlags) resolve() {
	if g.dataDir == "" {
		g.dataDir = os.Getenv("DOCNOTARY_DATADIR")
	}
	if g.dataDir == "" {
		g.dataDir = config.DefaultDataDir()
	}
	if g.walletPassword == "" {
		g.walletPassword = os.Getenv(walletPasswordEnv)
	}
}

// loadEnv resolves the configuration for g and wires the environment.
func (g *globalFlags) loadEnv(stderr io.Writer) (*env, error) {
	g.resolve()
	cfg, err := config.Load(g.dataDir)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	return newEnv(cfg, stderr)
}

// parseArgs parses fs and checks the positional argument count.
func parseArgs(fs *pflag.FlagSet, args []string, positional int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	rest := fs.Args()
	if len(rest) != positional {
		return nil, fmt.Errorf("%w: %s expects %d argument(s), got %d", errUsage, fs.Name(), positional, len(rest))
	}
	return rest, nil
}
