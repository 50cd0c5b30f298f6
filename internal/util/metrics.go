package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CardsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "giftcard_ingested_total",
		Help: "Total number of cards ingested into the pool",
	}, []string{"card_type"})

	CardsAllocatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "giftcard_allocated_total",
		Help: "Total number of cards handed out and reserved",
	}, []string{"card_type"})

	AllocationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "giftcard_allocations_failed_total",
		Help: "Total number of allocation requests that returned no card",
	}, []string{"reason"})

	CardsRedeemedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "giftcard_redeemed_total",
		Help: "Total number of cards confirmed into a terminal state",
	}, []string{"status"})

	ConfirmationsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "giftcard_confirmations_rejected_total",
		Help: "Total number of rejected redemption reports",
	}, []string{"reason"})

	CardsReclaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "giftcard_reclaimed_total",
		Help: "Total number of expired reservations returned to the pool",
	})

	RegistryKeysClearedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "giftcard_registry_keys_cleared_total",
		Help: "Total number of reservation keys deleted by the reaper",
	})

	AllocateLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "giftcard_allocate_latency_seconds",
		Help:    "Latency of card allocation operations",
		Buckets: prometheus.DefBuckets,
	})

	ReaperSweepLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "giftcard_reaper_sweep_latency_seconds",
		Help:    "Latency of reaper sweeps",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
