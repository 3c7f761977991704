package cmd

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/build"
	"github.com/Pollum-io/sysweb3/lib/types"
	"github.com/Pollum-io/sysweb3/submodule/keyring"
	"github.com/Pollum-io/sysweb3/submodule/metrics"
	"github.com/Pollum-io/sysweb3/submodule/vault"
)

var WatchCmd = &cli.Command{
	Name:  "watch",
	Usage: "Keep the wallet unlocked, refresh the active account and serve metrics",
	Flags: []cli.Flag{
		passwordFlag,
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "refresh interval",
			Value: build.DefaultRefreshInterval,
		},
		&cli.StringFlag{
			Name:  "metrics",
			Usage: "listen address of the prometheus endpoint, empty disables it",
			Value: build.DefaultMetricsAddr,
		},
	},
	Action: func(cctx *cli.Context) error {
		interval := cctx.Duration("interval")
		if interval < build.MinRefreshInterval {
			return xerrors.Errorf("interval must be at least %s", build.MinRefreshInterval)
		}

		err := metrics.Enable(build.BuildVersion, build.CurrentCommit)
		if err != nil {
			return err
		}

		e, err := unlocked(cctx)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx, cancel := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if addr := cctx.String("metrics"); addr != "" {
			stop, err := serveMetrics(e, addr)
			if err != nil {
				return err
			}
			defer stop()
		}

		ch := make(chan keyring.Event, 16)
		sub := e.sink.Subscribe(ch)
		defer sub.Unsubscribe()

		tick := time.NewTicker(interval)
		defer tick.Stop()

		refresh(ctx, e.mgr)
		for {
			select {
			case ev := <-ch:
				logEvent(ev)
			case err := <-sub.Err():
				return err
			case <-tick.C:
				refresh(ctx, e.mgr)
			case <-ctx.Done():
				logger.Info("shutting down")
				return nil
			}
		}
	},
}

func refresh(ctx context.Context, m *keyring.Manager) {
	acct, err := m.RefreshActiveAccount(ctx)
	if err != nil {
		logger.Warn("refresh: ", err)
		return
	}
	logger.Infof("account %d %s balance %s txs %d", acct.ID, acct.Address, acct.Balance(), acct.TxCount)
}

func logEvent(ev keyring.Event) {
	switch p := ev.Payload.(type) {
	case *vault.Snapshot:
		logger.Debugf("%s: snapshot at %d", ev.Name, p.UpdatedAt)
	case *types.Account:
		logger.Debugf("%s: account %d", ev.Name, p.ID)
	default:
		logger.Debugf("%s", ev.Name)
	}
}

func serveMetrics(e *env, addr string) (func(), error) {
	h, err := metrics.Exporter()
	if err != nil {
		return nil, err
	}

	lst, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, xerrors.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/debug/metrics", h)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := srv.Serve(lst)
		if err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server: ", err)
		}
	}()

	err = e.repo.SetAPIAddr(lst.Addr().String())
	if err != nil {
		logger.Warn("record metrics address: ", err)
	}
	logger.Info("serving metrics at http://", lst.Addr().String(), "/debug/metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
