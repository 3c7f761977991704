package cmd

import (
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/submodule/signer"
)

var SignCmd = &cli.Command{
	Name:  "sign",
	Usage: "Sign with the active account",
	Subcommands: []*cli.Command{
		signMessageCmd,
		signTxCmd,
	},
}

// payloadArg is the first argument, or stdin when it is "-".
func payloadArg(cctx *cli.Context) (string, error) {
	if cctx.Args().Len() < 1 {
		return "", xerrors.New("missing payload")
	}
	p := cctx.Args().First()
	if p != "-" {
		return p, nil
	}
	b, err := ioutil.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

var signMessageCmd = &cli.Command{
	Name:      "message",
	Usage:     "sign a text message",
	ArgsUsage: "<message|->",
	Flags: []cli.Flag{
		passwordFlag,
	},
	Action: func(cctx *cli.Context) error {
		msg, err := payloadArg(cctx)
		if err != nil {
			return err
		}

		e, err := unlocked(cctx)
		if err != nil {
			return err
		}
		defer e.Close()

		sig, err := e.mgr.SignMessage(cctx.Context, []byte(msg))
		if err != nil {
			return err
		}
		fmt.Println(sig)
		return nil
	},
}

var signTxCmd = &cli.Command{
	Name:      "tx",
	Usage:     "sign a base64 psbt on syscoin, a hex encoded transaction on ethereum networks",
	ArgsUsage: "<payload|->",
	Flags: []cli.Flag{
		passwordFlag,
		&cli.BoolFlag{
			Name:  "finalize",
			Usage: "finalize signed psbt inputs",
		},
		&cli.BoolFlag{
			Name:  "extract",
			Usage: "print the raw transaction once every psbt input is final",
		},
	},
	Action: func(cctx *cli.Context) error {
		payload, err := payloadArg(cctx)
		if err != nil {
			return err
		}

		e, err := unlocked(cctx)
		if err != nil {
			return err
		}
		defer e.Close()

		net, err := e.mgr.ActiveNetwork()
		if err != nil {
			return err
		}

		opts := signer.SignOptions{
			Finalize: cctx.Bool("finalize"),
			Extract:  cctx.Bool("extract"),
		}

		if net.ChainFamily.IsUTXO() {
			res, err := e.mgr.SignTransaction(cctx.Context, []byte(payload), opts)
			if err != nil {
				return err
			}
			fmt.Println(string(res))
			return nil
		}

		raw, err := hexutil.Decode(payload)
		if err != nil {
			return xerrors.Errorf("transaction is not 0x hex: %w", err)
		}
		res, err := e.mgr.SignTransaction(cctx.Context, raw, opts)
		if err != nil {
			return err
		}
		fmt.Println(hexutil.Encode(res))
		return nil
	},
}
