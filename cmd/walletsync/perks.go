package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/baely/walletsync/internal/common/errors"
	"github.com/baely/walletsync/internal/normalize"
)

type perksCmd struct {
	mergeFlags
}

func (*perksCmd) Name() string     { return "perks" }
func (*perksCmd) Synopsis() string { return "merge a card terms document into the store" }
func (*perksCmd) Usage() string {
	return `walletsync perks [-driver sqlite|postgres] <json-path> <store-path>

  Reads an array (or a single object) of cards and upserts each by name and
  issuer, replacing its bonus categories, perks, welcome bonus and current
  period.

`
}

func (c *perksCmd) SetFlags(f *flag.FlagSet) {
	c.mergeFlags.setFlags(f)
}

func (c *perksCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageError(f, c.Name(), 2)
	}

	data, err := os.ReadFile(f.Arg(0))
	if err != nil {
		return fail(c.Name(), errors.Wrap(err, "read cards"), nil)
	}
	cards, err := normalize.Cards(data)
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

	report, err := engine.MergeCards(ctx, cards)
	if err != nil {
		return fail(c.Name(), err, report)
	}
	printReport(c.Name(), report)
	return subcommands.ExitSuccess
}
