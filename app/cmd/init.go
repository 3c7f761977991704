package cmd

import (
	"fmt"
	"os"

	"github.com/howeyc/gopass"
	"github.com/mgutz/ansi"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/config"
	"github.com/Pollum-io/sysweb3/submodule/keyring"
	"github.com/Pollum-io/sysweb3/submodule/signer"
)

var InitCmd = &cli.Command{
	Name:  "init",
	Usage: "Create a wallet, or restore one from a mnemonic",
	Flags: []cli.Flag{
		passwordFlag,
		&cli.StringFlag{
			Name:  "mnemonic",
			Usage: "restore from this mnemonic instead of generating one",
		},
		&cli.StringFlag{
			Name:  "label",
			Usage: "label of the first account",
		},
		&cli.BoolFlag{
			Name:  "light",
			Usage: "use the light scrypt strength, for constrained devices",
		},
		&cli.BoolFlag{
			Name:  "reset",
			Usage: "replace an existing wallet",
		},
		&cli.StringFlag{
			Name:  "current-password",
			Usage: "password of the wallet --reset replaces, prompted when empty",
		},
	},
	Action: func(cctx *cli.Context) error {
		cfg := config.NewDefaultConfig()
		if cctx.Bool("light") {
			cfg.Keyring.ScryptStrength = config.StrengthLight
		}

		e, err := openEnv(cctx, cfg)
		if err != nil {
			return err
		}
		defer e.Close()

		if e.mgr.State() != keyring.Uninitialized && !cctx.Bool("reset") {
			return xerrors.Errorf("a wallet already exists, use --reset to replace it: %w", keyring.ErrAlreadyInitialized)
		}

		phrase := cctx.String("mnemonic")
		generated := phrase == ""
		if !generated && !e.mgr.ValidateSeed(phrase) {
			return keyring.ErrInvalidMnemonic
		}

		var current string
		if e.mgr.State() != keyring.Uninitialized {
			current = cctx.String("current-password")
			if current == "" {
				buf, err := gopass.GetPasswdPrompt("Current password: ", true, os.Stdin, os.Stdout)
				if err != nil {
					return err
				}
				current = string(buf)
			}
		}

		pw, err := password(cctx, true)
		if err != nil {
			return err
		}

		switch {
		case generated && e.mgr.State() == keyring.Uninitialized:
			phrase, err = e.mgr.CreateSeed(cctx.Context)
		case generated:
			phrase, err = signer.NewMnemonic()
		}
		if err != nil {
			return err
		}

		acct, err := e.mgr.CreateVault(cctx.Context, keyring.VaultOptions{
			Password: pw,
			Mnemonic: phrase,
			Reset:    cctx.Bool("reset"),
			Label:    cctx.String("label"),

			CurrentPassword: current,
		})
		if err != nil && !keyring.IsChainQuery(err) {
			return err
		}
		if err != nil {
			fmt.Println(ansi.Color("balance unavailable: "+err.Error(), "yellow"))
		}

		net, _ := e.mgr.ActiveNetwork()
		fmt.Println(ansi.Color("----------- Wallet created -----------", "green"))
		fmt.Println("Network: ", net.Label)
		fmt.Println("Account: ", acct.Label)
		fmt.Println("Address: ", acct.Address)
		fmt.Println("Balance: ", acct.Balance(), net.Currency)
		if generated {
			fmt.Println(ansi.Color("----------- Recovery phrase -----------", "red"))
			fmt.Println(phrase)
			fmt.Println(ansi.Color("write it down and keep it offline, it is shown once", "red"))
		}
		return nil
	},
}
