package metrics

import (
	"context"
	"net/http"

	"contrib.go.opencensus.io/exporter/prometheus"
	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opencensus.io/plugin/runmetrics"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"golang.org/x/xerrors"
)

// Exporter serves the registered views in the prometheus text format.
func Exporter() (http.Handler, error) {
	registry := promclient.NewRegistry()
	registry.MustRegister(promclient.NewGoCollector())

	exporter, err := prometheus.NewExporter(prometheus.Options{
		Registry:  registry,
		Namespace: "sysweb3",
	})
	if err != nil {
		return nil, xerrors.Errorf("could not create the prometheus stats exporter: %w", err)
	}
	return exporter, nil
}

// Enable registers the default views and records the build info. The info
// row is visible to a scrape once Enable returns.
func Enable(version, commit string) error {
	err := runmetrics.Enable(runmetrics.RunMetricOptions{
		EnableCPU:    true,
		EnableMemory: true,
	})
	if err != nil {
		return xerrors.Errorf("enabling runtime metrics: %w", err)
	}

	err = view.Register(DefaultViews...)
	if err != nil {
		return err
	}

	ctx, err := tag.New(context.Background(),
		tag.Insert(Version, version),
		tag.Insert(Commit, commit),
	)
	if err != nil {
		return err
	}
	stats.Record(ctx, KeyringInfo.M(1))

	// records are applied by the view worker, wait for this one to land
	_, err = view.RetrieveData(InfoView.Name)
	return err
}
