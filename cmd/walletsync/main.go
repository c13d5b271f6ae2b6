// Package main is the walletsync administrative CLI
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/baely/walletsync/internal/common/logger"
)

func main() {
	slog.SetDefault(logger.New(
		logger.WithLevel(logger.ParseLevel(os.Getenv("LOG_LEVEL"))),
		logger.WithOutput(os.Stderr),
		logger.WithText(),
	))

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&syncCmd{}, "merge")
	commander.Register(&pullCmd{}, "merge")
	commander.Register(&perksCmd{}, "merge")
	commander.Register(&schemaCmd{}, "store")
	commander.Register(&countsCmd{}, "store")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
