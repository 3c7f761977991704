package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats/view"
)

func TestTimerRecords(t *testing.T) {
	require.NoError(t, view.Register(OperationDurationView, OperationFailureView))
	defer view.Unregister(OperationDurationView, OperationFailureView)

	ctx := Tagged(context.Background(), Operation, "login")
	stop := Timer(ctx, OperationDuration)
	time.Sleep(time.Millisecond)
	stop()

	Inc(ctx, OperationFailure)

	rows, err := view.RetrieveData(OperationDurationView.Name)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	dist, ok := rows[0].Data.(*view.DistributionData)
	require.True(t, ok)
	require.EqualValues(t, 1, dist.Count)

	rows, err = view.RetrieveData(OperationFailureView.Name)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
