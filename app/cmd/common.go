package cmd

import (
	"os"
	"path/filepath"

	"github.com/howeyc/gopass"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/config"
	"github.com/Pollum-io/sysweb3/lib/crypto/codec"
	logging "github.com/Pollum-io/sysweb3/lib/log"
	"github.com/Pollum-io/sysweb3/lib/repo"
	"github.com/Pollum-io/sysweb3/lib/utils/paths"
	"github.com/Pollum-io/sysweb3/submodule/indexer"
	"github.com/Pollum-io/sysweb3/submodule/keyring"
)

var logger = logging.Logger("cmd")

const (
	FlagRepo     = "repo"
	FlagPassword = "password"

	PasswordVar = "SYSWEB3_PASSWORD"
)

var CommonCmd []*cli.Command

func init() {
	CommonCmd = []*cli.Command{
		InitCmd,
		InfoCmd,
		AccountCmd,
		NetworkCmd,
		SignCmd,
		MnemonicCmd,
		ForgetCmd,
		WatchCmd,
		ConfigCmd,
		BackupCmd,
	}
}

var passwordFlag = &cli.StringFlag{
	Name:    FlagPassword,
	EnvVars: []string{PasswordVar},
	Usage:   "wallet password, prompted for when empty",
}

// env is one opened wallet home with a keyring on top of it.
type env struct {
	repo repo.Repo
	mgr  *keyring.Manager
	evm  *indexer.EVM
	sink *keyring.FeedSink
}

func (e *env) Close() {
	e.mgr.Close()
	e.evm.Close()
	err := e.repo.Close()
	if err != nil {
		logger.Warn("close repo: ", err)
	}
}

func openRepo(cctx *cli.Context, cfg *config.Config) (*repo.FSRepo, error) {
	dir, err := paths.GetRepoPath(cctx.String(FlagRepo))
	if err != nil {
		return nil, err
	}
	return repo.NewFSRepo(dir, cfg)
}

// setupLogging applies the log section of cfg.
func setupLogging(repoDir string, cfg *config.Config) error {
	if cfg.Log.File != "" {
		file := cfg.Log.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(repoDir, file)
		}
		logging.SetOutput(file, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
	}
	return logging.SetLevel(cfg.Log.Level)
}

func newCodec(cfg *config.Config) *codec.Codec {
	if cfg.Keyring.ScryptStrength == config.StrengthLight {
		return codec.Light()
	}
	return codec.Standard()
}

// openEnv opens the wallet home, initializing it with cfg when cfg is not
// nil and the home does not exist yet.
func openEnv(cctx *cli.Context, cfg *config.Config) (*env, error) {
	dir, err := paths.GetRepoPath(cctx.String(FlagRepo))
	if err != nil {
		return nil, err
	}
	rep, err := repo.NewFSRepo(dir, cfg)
	if err != nil {
		return nil, err
	}

	p, _ := rep.Path()
	rcfg := rep.Config()
	err = setupLogging(p, rcfg)
	if err != nil {
		rep.Close()
		return nil, err
	}

	evm, err := indexer.NewEVM(rcfg.Keyring.LRUSize)
	if err != nil {
		rep.Close()
		return nil, err
	}

	sink := keyring.NewFeedSink()
	mgr, err := keyring.New(keyring.Options{
		Store:        rep.Store(),
		Codec:        newCodec(rcfg),
		UTXOIndexer:  indexer.NewBlockbook(rcfg.Keyring.Timeout()),
		EVMIndexer:   evm,
		Sink:         sink,
		QueryTimeout: rcfg.Keyring.Timeout(),
		Networks:     rcfg.Networks.Custom,
	})
	if err != nil {
		evm.Close()
		rep.Close()
		return nil, err
	}

	return &env{repo: rep, mgr: mgr, evm: evm, sink: sink}, nil
}

// unlocked opens the wallet home and logs in.
func unlocked(cctx *cli.Context) (*env, error) {
	e, err := openEnv(cctx, nil)
	if err != nil {
		return nil, err
	}

	if e.mgr.State() == keyring.Uninitialized {
		e.Close()
		return nil, xerrors.New("no wallet yet; run: 'init'")
	}

	pw, err := password(cctx, false)
	if err != nil {
		e.Close()
		return nil, err
	}

	acct, err := e.mgr.Login(cctx.Context, pw)
	if err != nil && !keyring.IsChainQuery(err) {
		e.Close()
		return nil, err
	}
	if err != nil {
		logger.Warn("balance refresh failed: ", err)
	}
	if acct != nil {
		logger.Debug("logged in as: ", acct.Address)
	}

	return e, nil
}

// password reads the password flag, or prompts on the terminal.
func password(cctx *cli.Context, confirm bool) (string, error) {
	if pw := cctx.String(FlagPassword); pw != "" {
		return pw, nil
	}

	pw, err := gopass.GetPasswdPrompt("Password: ", true, os.Stdin, os.Stdout)
	if err != nil {
		return "", err
	}
	if !confirm {
		return string(pw), nil
	}

	again, err := gopass.GetPasswdPrompt("Repeat password: ", true, os.Stdin, os.Stdout)
	if err != nil {
		return "", err
	}
	if string(pw) != string(again) {
		return "", xerrors.New("passwords do not match")
	}
	return string(pw), nil
}
