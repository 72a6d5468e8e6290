package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RemoteAttempts tracks every attempt of a remote operation by workflow kind and outcome class
	RemoteAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendcore_remote_attempts_total",
			Help: "Total number of remote call attempts",
		},
		[]string{"kind", "outcome"},
	)

	// RetryDelay tracks the backoff delay applied before a retry
	RetryDelay = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trendcore_retry_delay_seconds",
			Help:    "Backoff delay before a retry in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"kind"},
	)

	// CacheLookups tracks result cache lookups
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendcore_cache_lookups_total",
			Help: "Total number of result cache lookups",
		},
		[]string{"result"}, // hit, miss
	)

	// CacheEntries tracks the number of cached results
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trendcore_cache_entries",
			Help: "Number of entries held by result caches",
		},
	)

	// WorkflowTransitions tracks workflow state changes
	WorkflowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendcore_workflow_transitions_total",
			Help: "Total number of workflow state transitions",
		},
		[]string{"kind", "to"},
	)

	// ExportsParsed tracks ingested export files
	ExportsParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendcore_exports_parsed_total",
			Help: "Total number of export files processed",
		},
		[]string{"kind", "result"}, // result: ok, error
	)
)
