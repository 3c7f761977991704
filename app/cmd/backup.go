package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/config"
	"github.com/Pollum-io/sysweb3/lib/repo"
	"github.com/Pollum-io/sysweb3/lib/types/store"
	"github.com/Pollum-io/sysweb3/submodule/vault"
)

var BackupCmd = &cli.Command{
	Name:  "backup",
	Usage: "backup export or import",
	Subcommands: []*cli.Command{
		backupExportCmd,
		backupImportCmd,
	},
}

func backupPath(cctx *cli.Context) (string, error) {
	p := cctx.String("path")
	if p == "" {
		return "", xerrors.New("path is empty")
	}
	p, err := homedir.Expand(p)
	if err != nil {
		return "", err
	}
	return filepath.Abs(p)
}

func backuper(rep repo.Repo) (store.Backuper, error) {
	b, ok := rep.Store().(store.Backuper)
	if !ok {
		return nil, xerrors.Errorf("%s store has no backup support", rep.Config().Data.Backend)
	}
	return b, nil
}

var backupExportCmd = &cli.Command{
	Name:  "export",
	Usage: "export the keyring store to file, the vault stays encrypted",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "path",
			Usage: "path of file to store",
		},
	},
	Action: func(cctx *cli.Context) error {
		p, err := backupPath(cctx)
		if err != nil {
			return err
		}

		_, err = os.Stat(p)
		if !os.IsNotExist(err) {
			return xerrors.Errorf("%s exist", p)
		}

		rep, err := openRepo(cctx, nil)
		if err != nil {
			return err
		}
		defer rep.Close()

		b, err := backuper(rep)
		if err != nil {
			return err
		}

		pf, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err != nil {
			return err
		}
		defer pf.Close()

		err = b.Backup(pf)
		if err != nil {
			return err
		}

		fmt.Printf("export to %s\n", p)
		return nil
	},
}

var backupImportCmd = &cli.Command{
	Name:  "import",
	Usage: "import the keyring store from file into an empty wallet home",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "path",
			Usage: "path of file import from",
		},
	},
	Action: func(cctx *cli.Context) error {
		p, err := backupPath(cctx)
		if err != nil {
			return err
		}

		rep, err := openRepo(cctx, config.NewDefaultConfig())
		if err != nil {
			return err
		}
		defer rep.Close()

		ok, err := vault.New(rep.Store(), newCodec(rep.Config())).Exists()
		if err != nil {
			return err
		}
		if ok {
			return xerrors.New("a wallet already exists, run 'forget' first")
		}

		b, err := backuper(rep)
		if err != nil {
			return err
		}

		pf, err := os.Open(p)
		if err != nil {
			return err
		}
		defer pf.Close()

		err = b.Restore(pf)
		if err != nil {
			return err
		}

		fmt.Printf("import from %s\n", p)
		return nil
	},
}
