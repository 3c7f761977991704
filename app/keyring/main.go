package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Pollum-io/sysweb3/app/cmd"
	"github.com/Pollum-io/sysweb3/build"
	"github.com/Pollum-io/sysweb3/lib/utils/paths"
)

func main() {
	app := &cli.App{
		Name:                 "keyring",
		Usage:                "Syscoin and EVM wallet keyring",
		Version:              build.UserVersion(),
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    cmd.FlagRepo,
				EnvVars: []string{paths.HomePathVar},
				Usage:   "Specify wallet home path, ~/.sysweb3 when empty.",
			},
		},

		Commands: cmd.CommonCmd,
	}

	app.Setup()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n\n", err) // nolint:errcheck
		os.Exit(1)
	}
}
