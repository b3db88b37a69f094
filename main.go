package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/rmartins/repowatch/internal/cmd"
	"github.com/rmartins/repowatch/internal/config"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var cli cmd.CLI
	cli.SetSettings(settings)

	ctx := kong.Parse(&cli,
		kong.Name("repowatch"),
		kong.Description(cmd.Tagline),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
	)

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
