package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request handling time in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	wsActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	activeRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_rooms",
			Help: "Number of live listening rooms",
		},
	)

	playbackActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playback_actions_total",
			Help: "Applied host playback actions by kind",
		},
		[]string{"action"},
	)

	rejectedPlaybackActionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rejected_playback_actions_total",
			Help: "Playback actions dropped because the sender is not the host",
		},
	)
)

// RecordHTTPMetrics records counters and latency for one HTTP request.
func RecordHTTPMetrics(method, endpoint string, status int, duration time.Duration) {
	strStatus := strconv.Itoa(status)

	httpRequestsTotal.WithLabelValues(method, endpoint, strStatus).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, strStatus).Observe(duration.Seconds())
}

func IncrementWSActiveConnections() {
	wsActiveConnections.Inc()
}

func DecrementWSActiveConnections() {
	wsActiveConnections.Dec()
}

func SetActiveRooms(count int) {
	activeRooms.Set(float64(count))
}

func IncrementPlaybackActions(action string) {
	playbackActionsTotal.WithLabelValues(action).Inc()
}

func IncrementRejectedPlaybackActions() {
	rejectedPlaybackActionsTotal.Inc()
}
