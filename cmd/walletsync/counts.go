package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type countsCmd struct {
	storeFlags
}

func (*countsCmd) Name() string     { return "counts" }
func (*countsCmd) Synopsis() string { return "print the row count of every table" }
func (*countsCmd) Usage() string {
	return `walletsync counts [-driver sqlite|postgres] <store-path>

  Prints one table=rows line per table, or table=MISSING when the table
  does not exist.

`
}

func (c *countsCmd) SetFlags(f *flag.FlagSet) {
	c.storeFlags.setFlags(f)
}

func (c *countsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, c.Name(), 1)
	}

	db, err := c.open(ctx, f.Arg(0), false)
	if err != nil {
		return fail(c.Name(), err, nil)
	}
	defer db.Close()

	counts, err := db.Counts(ctx)
	if err != nil {
		return fail(c.Name(), err, nil)
	}
	for _, tc := range counts {
		fmt.Println(tc)
	}
	return subcommands.ExitSuccess
}
