package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type schemaCmd struct {
	storeFlags
}

func (*schemaCmd) Name() string     { return "schema" }
func (*schemaCmd) Synopsis() string { return "create or migrate the store schema" }
func (*schemaCmd) Usage() string {
	return `walletsync schema [-driver sqlite|postgres] <store-path>

  Creates missing tables and indexes and applies additive migrations.
  Safe to run on an up-to-date store.

`
}

func (c *schemaCmd) SetFlags(f *flag.FlagSet) {
	c.storeFlags.setFlags(f)
}

func (c *schemaCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, c.Name(), 1)
	}

	db, err := c.open(ctx, f.Arg(0), true)
	if err != nil {
		return fail(c.Name(), err, nil)
	}
	defer db.Close()

	fmt.Printf("schema ok driver=%s\n", db.Dialect())
	return subcommands.ExitSuccess
}
