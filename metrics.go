package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_batches_total",
		Help: "Sync batches by final result (committed or aborted).",
	}, []string{"result"})

	syncItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_items_total",
		Help: "Individual batch items by outcome bucket.",
	}, []string{"outcome"})

	conflictResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conflict_resolutions_total",
		Help: "Applied conflict resolutions by strategy.",
	}, []string{"strategy"})
)
