// Package monitoring exports the process metrics scraped from /metrics.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kirinyoku/meetly/internal/domain"
)

var (
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetly_entity_cache_lookups_total",
			Help: "Entity cache lookups by kind, scope and outcome",
		},
		[]string{"kind", "scope", "outcome"},
	)

	cacheFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meetly_entity_cache_fetch_duration_seconds",
			Help:    "Duration of remote fetches issued by the entity cache",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "scope", "status"},
	)

	favoriteToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetly_favorite_toggles_total",
			Help: "Favorite toggles by direction and status",
		},
		[]string{"direction", "status"},
	)

	seatOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetly_seat_operations_total",
			Help: "Seat selection operations by kind and status",
		},
		[]string{"operation", "status"},
	)

	mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetly_mutations_total",
			Help: "Entity writes by kind, operation and status",
		},
		[]string{"kind", "operation", "status"},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "meetly_active_sessions",
			Help: "Number of open user sessions",
		},
	)
)

// Monitor records domain outcomes into the package collectors.
type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (*Monitor) Hit(kind domain.Kind, scope string) {
	cacheLookups.WithLabelValues(string(kind), scope, "hit").Inc()
}

func (*Monitor) Miss(kind domain.Kind, scope string) {
	cacheLookups.WithLabelValues(string(kind), scope, "miss").Inc()
}

func (*Monitor) Fetched(kind domain.Kind, scope string, took time.Duration, err error) {
	cacheFetchDuration.WithLabelValues(string(kind), scope, status(err)).Observe(took.Seconds())
}

// TrackFavoriteToggle counts one toggle; add is true when the item was being
// favorited.
func (*Monitor) TrackFavoriteToggle(add bool, err error) {
	direction := "remove"
	if add {
		direction = "add"
	}
	favoriteToggles.WithLabelValues(direction, status(err)).Inc()
}

func (*Monitor) TrackSeatOperation(operation string, err error) {
	seatOperations.WithLabelValues(operation, status(err)).Inc()
}

func (*Monitor) TrackMutation(kind domain.Kind, operation string, err error) {
	mutations.WithLabelValues(string(kind), operation, status(err)).Inc()
}

func (*Monitor) SessionOpened() { activeSessions.Inc() }

func (*Monitor) SessionClosed() { activeSessions.Dec() }

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
