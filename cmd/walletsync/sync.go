package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/baely/walletsync/internal/pipeline"
)

type syncCmd struct {
	mergeFlags
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "merge an interchange document into the store" }
func (*syncCmd) Usage() string {
	return `walletsync sync [-driver sqlite|postgres] [-seed-rules <file>] [-as-of <date>] [-no-seed] <json-path> <store-path>

  Reads the interchange document at <json-path> and merges accounts,
  transactions, the item and the run summary into the store in one
  transaction, linking credit accounts to cards and inserting seeds.

`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	c.mergeFlags.setFlags(f)
}

func (c *syncCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageError(f, c.Name(), 2)
	}

	doc, err := pipeline.ReadDocument(f.Arg(0))
	if err != nil {
		return fail(c.Name(), err, nil)
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

	report, err := engine.Merge(ctx, doc)
	if err != nil {
		return fail(c.Name(), err, report)
	}
	printReport(c.Name(), report)
	return subcommands.ExitSuccess
}
