package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BidsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_bids_accepted_total",
		Help: "Bids accepted by the engine",
	})

	BidsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_bids_rejected_total",
		Help: "Bids rejected by the engine, by error kind",
	}, []string{"kind"})

	CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auction_command_duration_seconds",
		Help:    "Engine command processing latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})

	CommandQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "auction_command_queue_depth",
		Help: "Commands waiting in engine queues",
	})

	AuctionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "auction_sessions_active",
		Help: "Auctions currently ongoing or paused",
	})

	AuctionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "auction_session_duration_seconds",
		Help:    "Wall time from start to completion",
		Buckets: []float64{60, 300, 600, 1800, 3600, 7200, 14400},
	})

	PlayersSold = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_players_sold_total",
		Help: "Players resolved as sold",
	})

	PlayersUnsold = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_players_unsold_total",
		Help: "Players resolved as unsold or skipped",
	})

	BroadcastSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "auction_broadcast_subscribers",
		Help: "Connected broadcast subscribers",
	})

	BroadcastDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_broadcast_dropped_total",
		Help: "Subscribers disconnected for falling behind",
	})
)
