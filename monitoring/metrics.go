package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	queueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_active_entries_total",
			Help: "Current active queue entries per venue",
		},
		[]string{"venue_id"},
	)

	queueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_operations_total",
			Help: "Total queue operations",
		},
		[]string{"operation", "venue_id", "status"},
	)

	queueTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_transitions_total",
			Help: "Status transitions by edge and triggering actor",
		},
		[]string{"from", "to", "trigger"},
	)

	confirmationTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confirmation_timeouts_total",
			Help: "Entries auto-skipped by the confirmation timer",
		},
		[]string{"venue_id"},
	)

	waitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "singer_wait_duration_seconds",
			Help:    "Time from request submission to going on stage",
			Buckets: prometheus.ExponentialBuckets(30, 2, 10),
		},
		[]string{"venue_id"},
	)

	deckPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deck_polls_total",
			Help: "Deck controller poll results",
		},
		[]string{"venue_id", "result"},
	)
)

type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	monitor := &Monitor{redis: redisClient}

	if redisClient != nil {
		go monitor.collectMetrics()
	}

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.collectQueueMetrics(context.Background())
	}
}

func (m *Monitor) collectQueueMetrics(ctx context.Context) {
	venues, err := m.redis.SMembers(ctx, "active_venues").Result()
	if err != nil {
		return
	}

	for _, venueID := range venues {
		length, err := m.redis.ZCard(ctx, "queue:active:"+venueID).Result()
		if err != nil {
			continue
		}
		queueLength.WithLabelValues(venueID).Set(float64(length))
	}
}

// TrackQueueOperation counts a submit/cancel/etc. outcome.
func (m *Monitor) TrackQueueOperation(operation, venueID, status string) {
	queueOperations.WithLabelValues(operation, venueID, status).Inc()
}

// TrackTransition counts one state machine edge.
func (m *Monitor) TrackTransition(from, to, trigger string) {
	queueTransitions.WithLabelValues(from, to, trigger).Inc()
}

// TrackConfirmationTimeout counts a timer-expired auto-skip.
func (m *Monitor) TrackConfirmationTimeout(venueID string) {
	confirmationTimeouts.WithLabelValues(venueID).Inc()
}

// ObserveWaitTime records how long a singer queued before performing.
func (m *Monitor) ObserveWaitTime(venueID string, duration time.Duration) {
	waitDuration.WithLabelValues(venueID).Observe(duration.Seconds())
}

// TrackDeckPoll counts a bridge poll result (ok, empty, unreachable).
func (m *Monitor) TrackDeckPoll(venueID, result string) {
	deckPolls.WithLabelValues(venueID, result).Inc()
}
