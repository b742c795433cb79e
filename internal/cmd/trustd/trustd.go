// Package trustd parses trustd flags and dispatches CLI verbs against a
// reputation ledger store.
package trustd

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	entrypoint "github.com/intercomtrust/trustledger/internal/platform/cmd"
	"github.com/intercomtrust/trustledger/internal/platform/errors"
	"github.com/intercomtrust/trustledger/internal/storage"
	bboltstore "github.com/intercomtrust/trustledger/internal/storage/bbolt"
	sqlitestore "github.com/intercomtrust/trustledger/internal/storage/sqlite"
	"github.com/intercomtrust/trustledger/internal/trust/command"
	"github.com/intercomtrust/trustledger/internal/trust/ledger"
	"github.com/intercomtrust/trustledger/internal/trust/query"
)

// Version identifies the protocol implementation on the wire.
const Version = "Intercom Trust — P2P Reputation System v0.1.0"

// Store backends.
const (
	BackendBBolt  = "bbolt"
	BackendSQLite = "sqlite"
)

// Config holds trustd command configuration.
type Config struct {
	StorePath    string `env:"TRUSTLEDGER_STORE_PATH" envDefault:"trustledger.db"`
	StoreBackend string `env:"TRUSTLEDGER_STORE_BACKEND" envDefault:"bbolt"`
}

// ParseConfig parses environment and flags into Config, returning the
// remaining verb arguments.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, []string, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, nil, err
	}
	fs.StringVar(&cfg.StorePath, "store", cfg.StorePath, "Path to the ledger state store")
	fs.StringVar(&cfg.StoreBackend, "backend", cfg.StoreBackend, "State store backend (bbolt or sqlite)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, nil, err
	}
	return cfg, fs.Args(), nil
}

// OpenStore opens the configured state store backend.
func OpenStore(cfg Config) (storage.Store, error) {
	switch cfg.StoreBackend {
	case BackendBBolt:
		return bboltstore.Open(cfg.StorePath)
	case BackendSQLite:
		return sqlitestore.Open(cfg.StorePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Run dispatches one CLI verb. Query results go to stdout as TRUST_RESULT
// records, matching the wire output of the contract.
func Run(ctx context.Context, cfg Config, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("a verb is required: apply, summary, reviews, top, whois, get, version")
	}
	verb, rest := args[0], args[1:]

	if verb == "version" {
		fmt.Fprintln(stdout, Version)
		return nil
	}

	store, err := OpenStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	switch verb {
	case "apply":
		return runApply(ctx, store, rest, stdin, stdout)
	case "summary":
		return runSummary(ctx, store, rest, stdout)
	case "reviews":
		return runReviews(ctx, store, rest, stdout)
	case "top":
		return runTop(ctx, store, rest, stdout)
	case "whois":
		return runWhois(ctx, store, rest, stdout)
	case "get":
		return runGet(ctx, store, rest, stdout)
	default:
		return errors.New(errors.CodeUnknownCommand, fmt.Sprintf("unknown verb %q", verb))
	}
}

func runApply(ctx context.Context, store storage.Store, args []string, stdin io.Reader, stdout io.Writer) error {
	input := stdin
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open transaction log: %w", err)
		}
		defer f.Close()
		input = f
	}

	applier := ledger.Applier{
		Router:  command.NewRouter(store),
		Logger:  log.Default(),
		Results: stdout,
	}
	stats, err := applier.Replay(ctx, input)
	if err != nil {
		return err
	}
	log.Printf("applied %d entries, rejected %d", stats.Applied, stats.Rejected)
	return nil
}

func runSummary(ctx context.Context, store storage.Store, args []string, stdout io.Writer) error {
	address, err := oneAddress("summary", args)
	if err != nil {
		return err
	}
	result, err := query.New(store).RatingSummary(ctx, address)
	if err != nil {
		return err
	}
	return printResult(stdout, result)
}

func runReviews(ctx context.Context, store storage.Store, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("reviews", flag.ContinueOnError)
	limit := fs.Int("limit", query.DefaultReviewsLimit, "Page size")
	offset := fs.Int("offset", 0, "Page start")
	address, err := addressWithFlags(fs, args)
	if err != nil {
		return err
	}
	result, err := query.New(store).Reviews(ctx, address, *limit, *offset)
	if err != nil {
		return err
	}
	return printResult(stdout, result)
}

func runTop(ctx context.Context, store storage.Store, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	limit := fs.Int("limit", query.DefaultLeaderboardLimit, "Number of ranked peers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	result, err := query.New(store).Leaderboard(ctx, *limit)
	if err != nil {
		return err
	}
	return printResult(stdout, result)
}

func runWhois(ctx context.Context, store storage.Store, args []string, stdout io.Writer) error {
	address, err := oneAddress("whois", args)
	if err != nil {
		return err
	}
	result, err := query.New(store).Profile(ctx, address)
	if err != nil {
		return err
	}
	return printResult(stdout, result)
}

// runGet reads one raw state key. With -confirmed the read runs against a
// point-in-time snapshot instead of the live store.
func runGet(ctx context.Context, store storage.Store, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	key := fs.String("key", "", "State key to read")
	confirmed := fs.Bool("confirmed", false, "Read from a stable snapshot")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*key) == "" {
		return errors.New(errors.CodeInvalidInput, "get requires -key")
	}

	reader := storage.Reader(store)
	if *confirmed {
		snapshot, err := store.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		defer snapshot.Close()
		reader = snapshot
	}

	value, err := reader.Get(ctx, *key)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			fmt.Fprintln(stdout, "null")
			return nil
		}
		return err
	}
	fmt.Fprintln(stdout, string(value))
	return nil
}

func oneAddress(verb string, args []string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", errors.New(errors.CodeInvalidInput, fmt.Sprintf("%s requires exactly one address", verb))
	}
	return args[0], nil
}

func addressWithFlags(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return oneAddress(fs.Name(), fs.Args())
}

func printResult(w io.Writer, result any) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintf(w, "TRUST_RESULT:%s\n", payload)
	return err
}
