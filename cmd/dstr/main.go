package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

func main() {
	app := &cli.App{
		Name:    "dstr",
		Usage:   "runs string adapters over dynamic string buffers",
		Version: Version,
		Flags:   globalFlags,
		Commands: []*cli.Command{
			runCommand,
			pluginCommand,
			measureCommand,
			serveCommand,
			versionCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
