package cmd

import (
	"fmt"
	"time"

	"github.com/mgutz/ansi"
	"github.com/modood/table"
	"github.com/urfave/cli/v2"

	"github.com/Pollum-io/sysweb3/build"
	"github.com/Pollum-io/sysweb3/lib/types"
	"github.com/Pollum-io/sysweb3/submodule/keyring"
)

var InfoCmd = &cli.Command{
	Name:  "info",
	Usage: "Print wallet state, active network and accounts",
	Flags: []cli.Flag{
		passwordFlag,
	},
	Action: func(cctx *cli.Context) error {
		e, err := openEnv(cctx, nil)
		if err != nil {
			return err
		}
		state := e.mgr.State()
		e.Close()

		fmt.Println(ansi.Color("----------- Information -----------", "green"))
		fmt.Println(time.Now())
		fmt.Println("Version: ", build.UserVersion())
		fmt.Println("State: ", state)
		if state == keyring.Uninitialized {
			return nil
		}

		e, err = unlocked(cctx)
		if err != nil {
			return err
		}
		defer e.Close()

		net, err := e.mgr.ActiveNetwork()
		if err != nil {
			return err
		}
		fmt.Println(ansi.Color("----------- Network -----------", "green"))
		fmt.Println("Name: ", net.Label)
		fmt.Println("Chain: ", net.String())
		fmt.Println("Endpoint: ", net.URL)
		fmt.Println("Testnet: ", net.IsTestnet)

		acct, err := e.mgr.ActiveAccount()
		if err != nil {
			return err
		}
		fmt.Println(ansi.Color("----------- Active Account -----------", "green"))
		fmt.Println("ID: ", acct.ID)
		fmt.Println("Label: ", acct.Label)
		fmt.Println("Address: ", acct.Address)
		if acct.Family.IsUTXO() {
			fmt.Println("Xpub: ", acct.Xpub)
		}
		fmt.Printf("Balance: %s %s\n", acct.Balance(), net.Currency)
		fmt.Println("Transactions: ", acct.TxCount)
		if len(acct.Assets) > 0 {
			fmt.Println("Assets: ", len(acct.Assets))
		}

		accs, err := e.mgr.Accounts("")
		if err != nil {
			return err
		}
		fmt.Println(ansi.Color("----------- Accounts -----------", "green"))
		table.Output(accountRows(accs, acct.ID))
		return nil
	},
}

type accountRow struct {
	ID      uint32
	Label   string
	Address string
	Balance string
	Txs     int64
	Active  string
}

func accountRows(accs []*types.Account, active uint32) []accountRow {
	rows := make([]accountRow, 0, len(accs))
	for _, a := range accs {
		r := accountRow{
			ID:      a.ID,
			Label:   a.Label,
			Address: a.Address,
			Balance: a.Balance(),
			Txs:     a.TxCount,
		}
		if a.ID == active {
			r.Active = "*"
		}
		rows = append(rows, r)
	}
	return rows
}
