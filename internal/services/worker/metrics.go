package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Shared across worker instances (primary and retry topic), labeled by
// the consumed topic.
var (
	mConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "herald_messages_consumed_total", Help: "Messages fetched from the broker",
	}, []string{"topic"})
	mSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "herald_notifications_sent_total", Help: "Notifications dispatched successfully",
	}, []string{"topic"})
	mErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "herald_errors_total", Help: "Messages that failed processing",
	}, []string{"topic"})
	mSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "herald_duplicates_skipped_total", Help: "Redeliveries skipped by the idempotency check",
	}, []string{"topic"})
	mLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "herald_processing_seconds",
		Help:    "End-to-end per-message processing time",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})

	mRetried = promauto.NewCounter(prometheus.CounterOpts{
		Name: "herald_retries_published_total", Help: "Messages republished to the retry topic",
	})
	mDeadLettered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "herald_dead_letters_total", Help: "Messages published to the dead-letter topic",
	})
)
