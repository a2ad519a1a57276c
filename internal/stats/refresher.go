package stats

import (
	"context"
	"time"

	"github.com/pbxops/acdboard/internal/alerts"
	"github.com/pbxops/acdboard/internal/platform"
	"github.com/pbxops/acdboard/internal/store"
	"github.com/pbxops/acdboard/internal/types"
	"github.com/rs/zerolog"
)

// Broadcaster pushes messages to every connected dashboard.
type Broadcaster interface {
	Broadcast(v any)
}

// Refresher periodically re-fetches per-queue call statistics over the
// sliding window, stores them, and pushes the refreshed numbers plus the
// current coverage alerts to every dashboard.
type Refresher struct {
	store        *store.Store
	client       *platform.Client
	hub          Broadcaster
	logger       zerolog.Logger
	window       time.Duration
	interval     time.Duration
	outsideLabel string
}

// NewRefresher creates a stats refresher.
func NewRefresher(st *store.Store, client *platform.Client, hub Broadcaster, window, interval time.Duration, outsideLabel string, logger zerolog.Logger) *Refresher {
	return &Refresher{
		store:        st,
		client:       client,
		hub:          hub,
		logger:       logger.With().Str("component", "stats").Logger(),
		window:       window,
		interval:     interval,
		outsideLabel: outsideLabel,
	}
}

// Start begins the refresh loop until the context is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Dur("window", r.window).Msg("stats refresher started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("stats refresher stopped")
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

// Refresh runs one fetch cycle. Per-queue failures keep the previous numbers
// for that queue.
func (r *Refresher) Refresh(ctx context.Context) {
	until := time.Now()
	from := until.Add(-r.window)

	stats := make(map[int]types.QueueStats)
	for _, q := range r.store.Queues() {
		if q.ID == 0 {
			continue
		}
		st, err := r.client.QueueStatistics(ctx, q.ID, from, until)
		if err != nil {
			r.logger.Warn().Err(err).Int("queue_id", q.ID).Msg("queue statistics fetch failed")
			continue
		}
		stats[q.ID] = st
	}
	if len(stats) > 0 {
		r.store.SetQueueStats(stats)
		r.hub.Broadcast(types.QueueStatsMessage{Type: types.MessageQueueStats, Stats: stats})
	}

	queueAlerts := alerts.CheckQueueAlerts(r.store.Counts(), r.outsideLabel)
	r.hub.Broadcast(types.AlertsMessage{Type: types.MessageAlerts, Alerts: queueAlerts})
}
