package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	kafkax "github.com/NordCoder/Herald/internal/repository/kafka"
)

type fakeStats struct{ st Stats }

func (f fakeStats) Stats() Stats { return f.st }

type fakeLagSource struct {
	lags   []kafkax.PartitionLag
	total  int64
	err    error
	group  string
	topics []string
}

func (f *fakeLagSource) GroupLag(_ context.Context, groupID string, topics ...string) ([]kafkax.PartitionLag, int64, error) {
	f.group = groupID
	f.topics = topics
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.lags, f.total, nil
}

func TestSnapshot_LagArithmetic(t *testing.T) {
	lags := []kafkax.PartitionLag{
		{Topic: "notifications", Partition: 0, High: 100, Committed: 60, Lag: 40},
		{Topic: "notifications", Partition: 1, High: 50, Committed: 50, Lag: 0},
	}
	src := &fakeLagSource{lags: lags, total: 40}
	r := NewHealthReporter(zap.NewNop(), fakeStats{}, src, "herald-worker", "notifications")

	h := r.Snapshot(context.Background())

	assert.EqualValues(t, 40, h.TotalLag)
	require.Len(t, h.PartitionLag, 2)
	assert.EqualValues(t, 40, h.PartitionLag[0].Lag)
	assert.EqualValues(t, 0, h.PartitionLag[1].Lag)
	assert.Equal(t, "herald-worker", src.group)
	assert.Equal(t, []string{"notifications"}, src.topics)
}

func TestSnapshot_AdminFailureReportsUnknownLag(t *testing.T) {
	src := &fakeLagSource{err: errors.New("dial tcp: connection refused")}
	r := NewHealthReporter(zap.NewNop(), fakeStats{}, src, "herald-worker", "notifications")

	h := r.Snapshot(context.Background())

	assert.EqualValues(t, -1, h.TotalLag)
	require.NotNil(t, h.PartitionLag)
	assert.Empty(t, h.PartitionLag)
}

func TestSnapshot_Counters(t *testing.T) {
	start := time.Now().Add(-50 * time.Second)
	r := NewHealthReporter(zap.NewNop(), fakeStats{st: Stats{
		InFlight:        true,
		Processed:       100,
		Errors:          5,
		TotalProcessing: 10 * time.Second,
		StartedAt:       start,
	}}, &fakeLagSource{}, "g", "t")
	r.now = func() time.Time { return start.Add(50 * time.Second) }

	h := r.Snapshot(context.Background())

	assert.True(t, h.IsProcessing)
	assert.EqualValues(t, 100, h.ProcessedCount)
	assert.EqualValues(t, 5, h.ErrorCount)
	assert.Equal(t, "95.00%", h.SuccessRate)
	assert.InDelta(t, 2.0, h.ThroughputPerSec, 0.001)
	assert.InDelta(t, 100.0, h.AvgProcessingTimeMs, 0.001)
	assert.InDelta(t, 50.0, h.UptimeSeconds, 0.001)
}

func TestSnapshot_NoProcessedMeansNotApplicableRate(t *testing.T) {
	r := NewHealthReporter(zap.NewNop(), fakeStats{}, &fakeLagSource{}, "g", "t")

	h := r.Snapshot(context.Background())

	assert.Equal(t, "N/A", h.SuccessRate)
	assert.Zero(t, h.ThroughputPerSec)
	assert.Zero(t, h.AvgProcessingTimeMs)
}
