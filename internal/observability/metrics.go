package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "murmur_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// FriendRequestsTotal counts friend request transitions by outcome.
	FriendRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "murmur_friend_requests_total",
		Help: "Friend request transitions by outcome",
	}, []string{"outcome"})

	// MessagesSentTotal counts messages appended to any conversation.
	MessagesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "murmur_messages_sent_total",
		Help: "Total number of messages sent",
	})

	// ConversationsDeletedTotal counts conversations removed by cascade.
	ConversationsDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "murmur_conversations_deleted_total",
		Help: "Conversations deleted by reason",
	}, []string{"reason"})

	// UsernameGenerationAttempts records how many candidates a generation needed.
	UsernameGenerationAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "murmur_username_generation_attempts",
		Help:    "Candidates drawn per generated username",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	})

	// EventPublishErrors counts domain events that could not be delivered.
	EventPublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "murmur_event_publish_errors_total",
		Help: "Domain events that failed to publish by backend",
	}, []string{"backend"})
)

// DatabaseMetrics records query latency for a repository.
type DatabaseMetrics struct {
	table string
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance for table.
func NewDatabaseMetrics(table string) *DatabaseMetrics {
	return &DatabaseMetrics{table: table}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, m.table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, start)
	}
}
