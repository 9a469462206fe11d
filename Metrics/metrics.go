package Metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SessionsStarted    prometheus.Counter
	SessionsEnded      prometheus.Counter
	AdmissionsRejected prometheus.Counter
	ActiveSessions     prometheus.Gauge
	MessagesPersisted  prometheus.Counter
	MessageErrors      *prometheus.CounterVec
	TicketsCreated     *prometheus.CounterVec
	ConnectedClients   prometheus.Gauge
	EventsBroadcast    *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns the process-wide metrics set. Collectors register against
// the default Prometheus registry, so construction happens exactly once.
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = &Metrics{
			SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
				Name: "chat_sessions_started_total",
				Help: "Total number of chat sessions admitted",
			}),
			SessionsEnded: promauto.NewCounter(prometheus.CounterOpts{
				Name: "chat_sessions_ended_total",
				Help: "Total number of chat sessions ended",
			}),
			AdmissionsRejected: promauto.NewCounter(prometheus.CounterOpts{
				Name: "chat_admissions_rejected_total",
				Help: "Admissions rejected because no agent had capacity",
			}),
			ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "chat_active_sessions",
				Help: "Current number of active chat sessions",
			}),
			MessagesPersisted: promauto.NewCounter(prometheus.CounterOpts{
				Name: "chat_messages_persisted_total",
				Help: "Total number of messages durably stored",
			}),
			MessageErrors: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "chat_message_errors_total",
				Help: "Message sends rejected, by reason",
			}, []string{"reason"}),
			TicketsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "support_tickets_created_total",
				Help: "Fallback tickets created, by category",
			}, []string{"category"}),
			ConnectedClients: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "chat_connected_clients",
				Help: "Current number of websocket subscribers",
			}),
			EventsBroadcast: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "chat_events_broadcast_total",
				Help: "Events fanned out to session rooms, by type",
			}, []string{"type"}),
		}
	})
	return defaultMetrics
}
