package cmd

import (
	"fmt"
	"strconv"

	"github.com/modood/table"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/lib/types"
	"github.com/Pollum-io/sysweb3/submodule/keyring"
)

var NetworkCmd = &cli.Command{
	Name:  "network",
	Usage: "Manage networks",
	Subcommands: []*cli.Command{
		networkListCmd,
		networkSwitchCmd,
		networkAddCmd,
		networkRemoveCmd,
	},
}

func chainArgs(cctx *cli.Context) (types.ChainFamily, uint64, error) {
	if cctx.Args().Len() < 2 {
		return "", 0, xerrors.New("need <family> <chain id>")
	}
	family := types.ChainFamily(cctx.Args().Get(0))
	if !family.Valid() {
		return "", 0, xerrors.Errorf("family %q: %w", family, keyring.ErrInvalidNetwork)
	}
	id, err := strconv.ParseUint(cctx.Args().Get(1), 10, 64)
	if err != nil {
		return "", 0, xerrors.Errorf("bad chain id %q: %w", cctx.Args().Get(1), err)
	}
	return family, id, nil
}

type networkRow struct {
	Family   string
	ChainID  uint64
	Label    string
	Currency string
	Testnet  bool
	URL      string
	Active   string
}

var networkListCmd = &cli.Command{
	Name:  "list",
	Usage: "list registered networks",
	Flags: []cli.Flag{
		passwordFlag,
		&cli.StringFlag{
			Name:  "family",
			Usage: "syscoin or ethereum; all when empty",
		},
	},
	Action: func(cctx *cli.Context) error {
		e, err := unlocked(cctx)
		if err != nil {
			return err
		}
		defer e.Close()

		nets, err := e.mgr.Networks(types.ChainFamily(cctx.String("family")))
		if err != nil {
			return err
		}
		active, err := e.mgr.ActiveNetwork()
		if err != nil {
			return err
		}

		rows := make([]networkRow, 0, len(nets))
		for _, n := range nets {
			r := networkRow{
				Family:   string(n.ChainFamily),
				ChainID:  n.ChainID,
				Label:    n.Label,
				Currency: n.Currency,
				Testnet:  n.IsTestnet,
				URL:      n.URL,
			}
			if n.Same(active) {
				r.Active = "*"
			}
			rows = append(rows, r)
		}
		table.Output(rows)
		return nil
	},
}

var networkSwitchCmd = &cli.Command{
	Name:      "switch",
	Usage:     "make a registered network active",
	ArgsUsage: "<family> <chain id>",
	Flags: []cli.Flag{
		passwordFlag,
	},
	Action: func(cctx *cli.Context) error {
		family, id, err := chainArgs(cctx)
		if err != nil {
			return err
		}

		e, err := unlocked(cctx)
		if err != nil {
			return err
		}
		defer e.Close()

		acct, err := e.mgr.SwitchNetwork(cctx.Context, types.Network{ChainFamily: family, ChainID: id}, family)
		if err != nil && !keyring.IsChainQuery(err) {
			return err
		}
		if err != nil {
			logger.Warn("balance refresh failed: ", err)
		}

		net, _ := e.mgr.ActiveNetwork()
		fmt.Printf("%s: account %d %s, balance %s %s\n", net.Label, acct.ID, acct.Address, acct.Balance(), net.Currency)
		return nil
	},
}

var networkAddCmd = &cli.Command{
	Name:  "add",
	Usage: "register or update a network",
	Flags: []cli.Flag{
		passwordFlag,
		&cli.StringFlag{
			Name:     "family",
			Usage:    "syscoin or ethereum",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:     "chain-id",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "url",
			Usage:    "blockbook url or json-rpc endpoint",
			Required: true,
		},
		&cli.StringFlag{
			Name: "label",
		},
		&cli.StringFlag{
			Name: "currency",
		},
		&cli.BoolFlag{
			Name: "testnet",
		},
	},
	Action: func(cctx *cli.Context) error {
		n := types.Network{
			ChainFamily: types.ChainFamily(cctx.String("family")),
			ChainID:     cctx.Uint64("chain-id"),
			URL:         cctx.String("url"),
			Label:       cctx.String("label"),
			Currency:    cctx.String("currency"),
			IsTestnet:   cctx.Bool("testnet"),
		}
		err := keyring.ValidateNetwork(n)
		if err != nil {
			return err
		}

		e, err := unlocked(cctx)
		if err != nil {
			return err
		}
		defer e.Close()

		return e.mgr.AddNetwork(cctx.Context, n)
	},
}

var networkRemoveCmd = &cli.Command{
	Name:      "remove",
	Usage:     "remove an inactive network",
	ArgsUsage: "<family> <chain id>",
	Flags: []cli.Flag{
		passwordFlag,
	},
	Action: func(cctx *cli.Context) error {
		family, id, err := chainArgs(cctx)
		if err != nil {
			return err
		}

		e, err := unlocked(cctx)
		if err != nil {
			return err
		}
		defer e.Close()

		return e.mgr.RemoveNetwork(cctx.Context, family, id)
	},
}
