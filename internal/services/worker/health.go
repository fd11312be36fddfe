package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	kafkax "github.com/NordCoder/Herald/internal/repository/kafka"
)

type statsSource interface {
	Stats() Stats
}

type lagSource interface {
	GroupLag(ctx context.Context, groupID string, topics ...string) ([]kafkax.PartitionLag, int64, error)
}

// Health is the snapshot served to the status surface. TotalLag is -1
// when the admin fetch failed: lag is best-effort telemetry, unknown is
// reported as unknown, never as zero.
type Health struct {
	IsProcessing        bool                  `json:"isProcessing"`
	ProcessedCount      int64                 `json:"processedCount"`
	ErrorCount          int64                 `json:"errorCount"`
	SuccessRate         string                `json:"successRate"`
	ThroughputPerSec    float64               `json:"throughputPerSec"`
	AvgProcessingTimeMs float64               `json:"avgProcessingTimeMs"`
	UptimeSeconds       float64               `json:"uptimeSeconds"`
	TotalLag            int64                 `json:"totalLag"`
	PartitionLag        []kafkax.PartitionLag `json:"partitionLag"`
}

// HealthReporter assembles worker counters and live consumer-group lag
// on demand.
type HealthReporter struct {
	log     *zap.Logger
	stats   statsSource
	lags    lagSource
	groupID string
	topics  []string
	now     func() time.Time
}

func NewHealthReporter(log *zap.Logger, stats statsSource, lags lagSource, groupID string, topics ...string) *HealthReporter {
	if log == nil {
		log = zap.L()
	}
	return &HealthReporter{
		log:     log.With(zap.String("component", "health-reporter")),
		stats:   stats,
		lags:    lags,
		groupID: groupID,
		topics:  topics,
		now:     time.Now,
	}
}

func (r *HealthReporter) Snapshot(ctx context.Context) Health {
	st := r.stats.Stats()

	h := Health{
		IsProcessing:   st.InFlight,
		ProcessedCount: st.Processed,
		ErrorCount:     st.Errors,
		SuccessRate:    "N/A",
		PartitionLag:   []kafkax.PartitionLag{},
	}

	if st.Processed > 0 {
		rate := float64(st.Processed-st.Errors) / float64(st.Processed)
		h.SuccessRate = fmt.Sprintf("%.2f%%", rate*100)
		h.AvgProcessingTimeMs = st.TotalProcessing.Seconds() * 1000 / float64(st.Processed)
	}

	if uptime := r.now().Sub(st.StartedAt).Seconds(); uptime > 0 {
		h.UptimeSeconds = uptime
		h.ThroughputPerSec = float64(st.Processed) / uptime
	}

	lags, total, err := r.lags.GroupLag(ctx, r.groupID, r.topics...)
	if err != nil {
		r.log.Warn("lag fetch failed; reporting unknown", zap.Error(err))
		h.TotalLag = -1
		return h
	}
	h.TotalLag = total
	h.PartitionLag = lags
	return h
}
