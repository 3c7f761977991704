package metrics

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var defaultMillisecondsDistribution = view.Distribution(0.01, 0.05, 0.1, 0.3, 0.6, 0.8, 1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 20, 25, 30, 40, 50, 65, 80, 100, 130, 160, 200, 250, 300, 400, 500, 650, 800, 1000, 2000, 3000, 4000, 5000, 7500, 10000, 20000, 50000, 100000)

var (
	Version, _     = tag.NewKey("version")
	Commit, _      = tag.NewKey("commit")
	Operation, _   = tag.NewKey("operation")
	ChainFamily, _ = tag.NewKey("chain_family")
)

var (
	KeyringInfo = stats.Int64("info", "Keyring info", stats.UnitDimensionless)

	// keyring operations
	OperationDuration = stats.Float64("keyring/operation_ms", "Duration of keyring operations", stats.UnitMilliseconds)
	OperationFailure  = stats.Int64("keyring/operation_failure", "Counter for failed keyring operations", stats.UnitDimensionless)
	AccountsDerived   = stats.Int64("keyring/accounts_derived", "Counter for derived accounts", stats.UnitDimensionless)

	// chain indexer
	IndexerRequestDuration = stats.Float64("indexer/request_ms", "Duration of chain indexer requests", stats.UnitMilliseconds)
	IndexerFailure         = stats.Int64("indexer/failure", "Counter for chain indexer failures", stats.UnitDimensionless)
)

var (
	InfoView = &view.View{
		Name:        "info",
		Description: "keyring information",
		Measure:     KeyringInfo,
		Aggregation: view.LastValue(),
		TagKeys:     []tag.Key{Version, Commit},
	}
	OperationDurationView = &view.View{
		Measure:     OperationDuration,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{Operation},
	}
	OperationFailureView = &view.View{
		Measure:     OperationFailure,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Operation},
	}
	AccountsDerivedView = &view.View{
		Measure:     AccountsDerived,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{ChainFamily},
	}
	IndexerRequestDurationView = &view.View{
		Measure:     IndexerRequestDuration,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{ChainFamily},
	}
	IndexerFailureView = &view.View{
		Measure:     IndexerFailure,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{ChainFamily},
	}
)

var DefaultViews = func() []*view.View {
	views := []*view.View{
		InfoView,
		OperationDurationView,
		OperationFailureView,
		AccountsDerivedView,
		IndexerRequestDurationView,
		IndexerFailureView,
	}
	return views
}()

func SinceInMilliseconds(startTime time.Time) float64 {
	return float64(time.Since(startTime).Nanoseconds()) / 1e6
}

func Timer(ctx context.Context, m *stats.Float64Measure) func() {
	start := time.Now()
	return func() {
		stats.Record(ctx, m.M(SinceInMilliseconds(start)))
	}
}

// Tagged returns ctx carrying one tag, ignoring tagging errors.
func Tagged(ctx context.Context, key tag.Key, val string) context.Context {
	nctx, err := tag.New(ctx, tag.Upsert(key, val))
	if err != nil {
		return ctx
	}
	return nctx
}

func Inc(ctx context.Context, m *stats.Int64Measure) {
	stats.Record(ctx, m.M(1))
}
