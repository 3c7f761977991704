package cmd

import (
	"fmt"
	"strconv"

	"github.com/mgutz/ansi"
	"github.com/modood/table"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/lib/types"
)

var AccountCmd = &cli.Command{
	Name:  "account",
	Usage: "Manage accounts of the active network",
	Subcommands: []*cli.Command{
		accountListCmd,
		accountAddCmd,
		accountUseCmd,
		accountLabelCmd,
		accountRemoveCmd,
		accountExportCmd,
	},
}

func idArg(cctx *cli.Context, i int) (uint32, error) {
	if cctx.Args().Len() <= i {
		return 0, xerrors.New("missing account id")
	}
	id, err := strconv.ParseUint(cctx.Args().Get(i), 10, 32)
	if err != nil {
		return 0, xerrors.Errorf("bad account id %q: %w", cctx.Args().Get(i), err)
	}
	return uint32(id), nil
}

var accountListCmd = &cli.Command{
	Name:  "list",
	Usage: "list accounts",
	Flags: []cli.Flag{
		passwordFlag,
		&cli.StringFlag{
			Name:  "scope",
			Usage: "syscoin, syscoin-testnet or ethereum; the active one when empty",
		},
	},
	Action: func(cctx *cli.Context) error {
		e, err := unlocked(cctx)
		if err != nil {
			return err
		}
		defer e.Close()

		accs, err := e.mgr.Accounts(types.Scope(cctx.String("scope")))
		if err != nil {
			return err
		}

		var active uint32
		cur, err := e.mgr.ActiveAccount()
		if err == nil {
			active = cur.ID
		}

		table.Output(accountRows(accs, active))
		return nil
	},
}

var accountAddCmd = &cli.Command{
	Name:  "add",
	Usage: "derive the next account and make it active",
	Flags: []cli.Flag{
		passwordFlag,
		&cli.StringFlag{
			Name:  "label",
			Usage: "account label",
		},
	},
	Action: func(cctx *cli.Context) error {
		e, err := unlocked(cctx)
		if err != nil {
			return err
		}
		defer e.Close()

		acct, err := e.mgr.AddAccount(cctx.Context, cctx.String("label"))
		if err != nil {
			return err
		}
		fmt.Printf("%d %s %s\n", acct.ID, acct.Label, acct.Address)
		return nil
	},
}

var accountUseCmd = &cli.Command{
	Name:      "use",
	Usage:     "make an account active",
	ArgsUsage: "<id>",
	Flags: []cli.Flag{
		passwordFlag,
	},
	Action: func(cctx *cli.Context) error {
		id, err := idArg(cctx, 0)
		if err != nil {
			return err
		}

		e, err := unlocked(cctx)
		if err != nil {
			return err
		}
		defer e.Close()

		acct, err := e.mgr.SetActiveAccount(cctx.Context, id)
		if err != nil {
			return err
		}
		fmt.Printf("%d %s %s\n", acct.ID, acct.Label, acct.Address)
		return nil
	},
}

var accountLabelCmd = &cli.Command{
	Name:      "label",
	Usage:     "rename an account",
	ArgsUsage: "<id> <label>",
	Flags: []cli.Flag{
		passwordFlag,
	},
	Action: func(cctx *cli.Context) error {
		id, err := idArg(cctx, 0)
		if err != nil {
			return err
		}
		if cctx.Args().Len() < 2 {
			return xerrors.New("missing label")
		}

		e, err := unlocked(cctx)
		if err != nil {
			return err
		}
		defer e.Close()

		return e.mgr.SetAccountLabel(cctx.Context, id, cctx.Args().Get(1))
	},
}

var accountRemoveCmd = &cli.Command{
	Name:      "remove",
	Usage:     "remove an inactive account",
	ArgsUsage: "<id>",
	Flags: []cli.Flag{
		passwordFlag,
	},
	Action: func(cctx *cli.Context) error {
		id, err := idArg(cctx, 0)
		if err != nil {
			return err
		}

		e, err := unlocked(cctx)
		if err != nil {
			return err
		}
		defer e.Close()

		return e.mgr.RemoveAccount(cctx.Context, id)
	},
}

var accountExportCmd = &cli.Command{
	Name:      "export",
	Usage:     "print the private key of an account",
	ArgsUsage: "<id>",
	Flags: []cli.Flag{
		passwordFlag,
	},
	Action: func(cctx *cli.Context) error {
		id, err := idArg(cctx, 0)
		if err != nil {
			return err
		}

		e, err := unlocked(cctx)
		if err != nil {
			return err
		}
		defer e.Close()

		key, err := e.mgr.GetPrivateKey(id)
		if err != nil {
			return err
		}
		fmt.Println(ansi.Color("anyone holding this key controls the account", "red"))
		fmt.Println(key)
		return nil
	},
}
