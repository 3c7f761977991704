package cmd

import (
	"fmt"

	"github.com/mgutz/ansi"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/submodule/keyring"
)

var MnemonicCmd = &cli.Command{
	Name:  "mnemonic",
	Usage: "Print the recovery phrase",
	Flags: []cli.Flag{
		passwordFlag,
		&cli.BoolFlag{
			Name:  "encrypted",
			Usage: "print the encrypted form held by the session",
		},
	},
	Action: func(cctx *cli.Context) error {
		e, err := unlocked(cctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if cctx.Bool("encrypted") {
			enc, err := e.mgr.GetEncryptedMnemonic()
			if err != nil {
				return err
			}
			fmt.Println(enc)
			return nil
		}

		phrase, err := e.mgr.GetDecryptedMnemonic()
		if err != nil {
			return err
		}
		fmt.Println(ansi.Color("anyone holding this phrase controls every account", "red"))
		fmt.Println(phrase)
		return nil
	},
}

var ForgetCmd = &cli.Command{
	Name:  "forget",
	Usage: "Delete the wallet from this device",
	Flags: []cli.Flag{
		passwordFlag,
		&cli.BoolFlag{
			Name:  "yes",
			Usage: "confirm, the wallet can only be restored from its mnemonic",
		},
	},
	Action: func(cctx *cli.Context) error {
		if !cctx.Bool("yes") {
			return xerrors.New("forget deletes the wallet, rerun with --yes")
		}

		e, err := openEnv(cctx, nil)
		if err != nil {
			return err
		}
		defer e.Close()

		if e.mgr.State() == keyring.Uninitialized {
			return keyring.ErrNotInitialized
		}

		pw, err := password(cctx, false)
		if err != nil {
			return err
		}

		err = e.mgr.ForgetWallet(cctx.Context, pw)
		if err != nil {
			return err
		}
		fmt.Println("wallet removed")
		return nil
	},
}
