package monitoring

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	stagedIntents = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "staged_intents_total",
			Help: "Currently staged registration intents per event",
		},
		[]string{"event_id"},
	)

	signUps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sign_ups_total",
			Help: "Accepted sign-up intents",
		},
		[]string{"event_id"},
	)

	resolutionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolution_outcomes_total",
			Help: "Resolved intents by outcome",
		},
		[]string{"outcome"},
	)

	resolutionPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolution_passes_total",
			Help: "Resolution passes by result",
		},
		[]string{"event_id", "status"},
	)

	passDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resolution_pass_duration_seconds",
			Help:    "Duration of resolution passes",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"event_id"},
	)

	swaps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_swaps_total",
			Help: "Registered users displaced by prioritized arrivals",
		},
		[]string{"event_id"},
	)
)

// TrackSignUp counts an accepted sign-up intent.
func TrackSignUp(eventID string) {
	signUps.WithLabelValues(eventID).Inc()
}

// TrackOutcome counts one resolved intent by outcome
// (registered, waitlisted, blocked, stale).
func TrackOutcome(outcome string) {
	resolutionOutcomes.WithLabelValues(outcome).Inc()
}

// TrackPass counts a completed resolution pass.
func TrackPass(eventID, status string) {
	resolutionPasses.WithLabelValues(eventID, status).Inc()
}

// ObservePassDuration records how long a pass took.
func ObservePassDuration(eventID string, seconds float64) {
	passDuration.WithLabelValues(eventID).Observe(seconds)
}

// TrackSwap counts a swap.
func TrackSwap(eventID string) {
	swaps.WithLabelValues(eventID).Inc()
}

// Monitor samples staged-intent gauges from Redis.
type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	return &Monitor{redis: redisClient}
}

// Collect scans staged intents every interval until ctx is done.
func (m *Monitor) Collect(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.collectStagedIntents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) collectStagedIntents(ctx context.Context) {
	keys, err := m.redis.Keys(ctx, "registration:*").Result()
	if err != nil {
		return
	}

	counts := make(map[string]int)
	for _, key := range keys {
		parts := strings.Split(strings.TrimPrefix(key, "registration:"), ":")
		if len(parts) != 2 {
			continue
		}
		counts[parts[0]]++
	}

	stagedIntents.Reset()
	for eventID, count := range counts {
		stagedIntents.WithLabelValues(eventID).Set(float64(count))
	}
}
