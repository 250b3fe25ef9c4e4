// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "permahub_events_submitted_total",
		Help: "Total number of inbound events handed to the acceptance engine.",
	})

	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permahub_acceptance_decisions_total",
		Help: "Acceptance engine decisions, labelled by branch and decision.",
	}, []string{"branch", "decision"})

	AcceptDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "permahub_accept_duration_ms",
		Help:    "Time spent deciding and applying one inbound event, in milliseconds.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "permahub_engine_queue_depth",
		Help: "Inbound events waiting for the acceptance engine.",
	})

	FanoutDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permahub_fanout_deliveries_total",
		Help: "Fan-out deliveries, labelled by status (sent, failed, dropped).",
	}, []string{"status"})

	HubQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "permahub_hub_queries_total",
		Help: "FetchEvents requests evaluated by the hub.",
	})

	HubQueryResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "permahub_hub_query_results",
		Help:    "Number of events returned per hub query.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
	})

	ClientQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permahub_client_queries_total",
		Help: "Client queries, labelled by result status and filter classification.",
	}, []string{"status", "classification"})

	ClientQueryEfficiency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "permahub_client_query_efficiency_ratio",
		Help:    "Share of candidate events a client query filtered away (0-1).",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	Messages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permahub_messages_total",
		Help: "Transport messages handled, labelled by action and status.",
	}, []string{"action", "status"})

	ConfigReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permahub_config_reloads_total",
		Help: "Configuration reload attempts, labelled by result.",
	}, []string{"result"})
)
