package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

var ConfigCmd = &cli.Command{
	Name:  "config",
	Usage: "Interact with config",
	Subcommands: []*cli.Command{
		configSetCmd,
		configGetCmd,
	},
}

func printJSON(v interface{}) error {
	bs, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(bs))
	return nil
}

var configGetCmd = &cli.Command{
	Name:      "get",
	Usage:     "Get config key",
	ArgsUsage: "<key> (e.g. \"keyring.queryTimeout\")",
	Action: func(cctx *cli.Context) error {
		key := cctx.Args().First()
		if key == "" {
			return xerrors.New("key is nil")
		}

		rep, err := openRepo(cctx, nil)
		if err != nil {
			return err
		}
		defer rep.Close()

		res, err := rep.Config().Get(key)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var configSetCmd = &cli.Command{
	Name:      "set",
	Usage:     "Set config key",
	ArgsUsage: "<key> <value>",
	Action: func(cctx *cli.Context) error {
		if cctx.Args().Len() < 2 {
			return xerrors.New("need <key> <value>")
		}
		key := cctx.Args().Get(0)

		rep, err := openRepo(cctx, nil)
		if err != nil {
			return err
		}
		defer rep.Close()

		cfg := *rep.Config()
		err = cfg.Set(key, cctx.Args().Get(1))
		if err != nil {
			return err
		}

		err = rep.ReplaceConfig(&cfg)
		if err != nil {
			logger.Errorf("Error replacing config %s", err)
			return err
		}

		res, err := cfg.Get(key)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}
