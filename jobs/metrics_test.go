package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsMiddlewareCountsRuns(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	failErr := errors.New("boom")
	handler := metrics.Middleware(asynq.HandlerFunc(func(_ context.Context, task *asynq.Task) error {
		if task.Type() == TaskSnapshotIntegrity {
			return failErr
		}
		return nil
	}))

	require.NoError(t, handler.ProcessTask(context.Background(), asynq.NewTask(TaskLedgerReplay, nil)))
	err := handler.ProcessTask(context.Background(), asynq.NewTask(TaskSnapshotIntegrity, nil))
	require.ErrorIs(t, err, failErr)

	runs := testutil.ToFloat64(metrics.runs.WithLabelValues(TaskLedgerReplay, "success"))
	require.Equal(t, float64(1), runs)
	failures := testutil.ToFloat64(metrics.failures.WithLabelValues(TaskSnapshotIntegrity))
	require.Equal(t, float64(1), failures)
}

func TestNilMetricsTrackerIsSafe(t *testing.T) {
	var metrics *Metrics
	tracker := metrics.Track(TaskLedgerReplay)
	require.NoError(t, tracker.End(nil))
}
