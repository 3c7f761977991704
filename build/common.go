package build

import "time"

const (
	// DefaultRefreshInterval paces the watch loop.
	DefaultRefreshInterval = 30 * time.Second
	// MinRefreshInterval keeps the watch loop off public indexers' rate limits.
	MinRefreshInterval = 5 * time.Second
	// DefaultMetricsAddr is where watch serves prometheus metrics.
	DefaultMetricsAddr = "127.0.0.1:9151"
)
