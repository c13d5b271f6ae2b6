package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/subcommands"

	"github.com/baely/walletsync/internal/pipeline"
	"github.com/baely/walletsync/internal/plaid"
)

type pullCmd struct {
	mergeFlags
	accessToken string
	institution string
	pageSize    int
}

func (*pullCmd) Name() string     { return "pull" }
func (*pullCmd) Synopsis() string { return "pull from Plaid, write the document and merge it" }
func (*pullCmd) Usage() string {
	return `walletsync pull [-access-token <token>] [-institution <id>] [merge flags] <json-path> <store-path>

  Pulls every transaction page, the accounts and the item from Plaid, writes
  the interchange document to <json-path> and merges it into the store.
  Without an access token a sandbox item is created for -institution.

`
}

func (c *pullCmd) SetFlags(f *flag.FlagSet) {
	c.mergeFlags.setFlags(f)
	f.StringVar(&c.accessToken, "access-token", os.Getenv("PLAID_ACCESS_TOKEN"), "Plaid access token")
	f.StringVar(&c.institution, "institution", "ins_109508", "sandbox institution used when no access token is given")
	f.IntVar(&c.pageSize, "page-size", 0, "transactions per sync page, 0 for the provider default")
}

func (c *pullCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageError(f, c.Name(), 2)
	}

	client := plaid.NewClient()
	token := c.accessToken
	if token == "" {
		var err error
		if token, err = client.SandboxAccessToken(ctx, c.institution); err != nil {
			return fail(c.Name(), err, nil)
		}
		fmt.Fprintf(os.Stderr, "created sandbox item for %s\n", c.institution)
	}

	db, err := c.open(ctx, f.Arg(1), true)
	if err != nil {
		return fail(c.Name(), err, nil)
	}
	defer db.Close()

	engine, err := c.engine(db)
	if err != nil {
		return fail(c.Name(), err, nil)
	}

	syncer := pipeline.NewSyncerWithConfig(plaid.NewPuller(client, c.pageSize), engine, &pipeline.SyncerConfig{
		AccessToken:  token,
		SnapshotPath: f.Arg(0),
		Logger:       slog.Default(),
	})
	report, err := syncer.Sync(ctx, token)
	if err != nil {
		return fail(c.Name(), err, report)
	}
	printReport(c.Name(), report)
	return subcommands.ExitSuccess
}
