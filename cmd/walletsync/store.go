package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/baely/walletsync/internal/common/errors"
	"github.com/baely/walletsync/internal/pipeline"
	"github.com/baely/walletsync/internal/seed"
	"github.com/baely/walletsync/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// storeFlags selects the store a command works on.
type storeFlags struct {
	driver string
}

func (s *storeFlags) setFlags(f *flag.FlagSet) {
	f.StringVar(&s.driver, "driver", envOr("WALLETSYNC_DRIVER", "sqlite"), "store driver: sqlite or postgres. For postgres <store-path> is the DSN.")
}

// open connects to the store and, when prepare is set, brings the schema up
// to date.
func (s *storeFlags) open(ctx context.Context, path string, prepare bool) (*store.Client, error) {
	c, err := store.Open(s.driver, path)
	if err != nil {
		return nil, err
	}
	c.WithLogger(slog.Default())
	if prepare {
		if err := c.EnsureSchema(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// mergeFlags configure the engine of commands that merge.
type mergeFlags struct {
	storeFlags
	seedRules string
	asOf      string
	noSeed    bool
}

func (m *mergeFlags) setFlags(f *flag.FlagSet) {
	m.storeFlags.setFlags(f)
	f.StringVar(&m.seedRules, "seed-rules", os.Getenv("WALLETSYNC_SEED_RULES"), "YAML file of seed rules. Built-in rules are used when empty.")
	f.StringVar(&m.asOf, "as-of", "", "seed as-of date (YYYY-MM-DD), default today")
	f.BoolVar(&m.noSeed, "no-seed", false, "do not insert seed transactions")
}

func (m *mergeFlags) engine(c *store.Client) (*pipeline.Engine, error) {
	cfg := pipeline.DefaultConfig()
	cfg.NoSeed = m.noSeed

	if m.seedRules != "" {
		rules, err := seed.LoadRules(m.seedRules)
		if err != nil {
			return nil, err
		}
		cfg.Rules = rules
	}

	if m.asOf != "" {
		asOf, err := time.Parse("2006-01-02", m.asOf)
		if err != nil {
			return nil, errors.Wrap(errors.ErrInvalidInput, "as-of %q: %v", m.asOf, err)
		}
		cfg.Now = func() time.Time { return asOf }
	}

	return pipeline.NewWithConfig(c, cfg), nil
}

// fail prints the one-line failure summary and returns the failure status.
func fail(cmd string, err error, report *pipeline.Report) subcommands.ExitStatus {
	if report != nil {
		fmt.Fprintf(os.Stderr, "walletsync %s: %v (%s)\n", cmd, err, report.Summary())
	} else {
		fmt.Fprintf(os.Stderr, "walletsync %s: %v\n", cmd, err)
	}
	return subcommands.ExitFailure
}

func usageError(f *flag.FlagSet, cmd string, want int) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "walletsync %s: expected %d argument(s), got %d\n", cmd, want, f.NArg())
	return subcommands.ExitUsageError
}

func printReport(cmd string, report *pipeline.Report) {
	fmt.Printf("%s ok run=%s %s\n", cmd, report.RunID, report.Summary())
	for _, v := range report.Violations {
		fmt.Fprintf(os.Stderr, "skipped: %v\n", v)
	}
}
