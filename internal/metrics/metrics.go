package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registration counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registrations        *prometheus.CounterVec
	RegistrationFailures *prometheus.CounterVec
	Notifications        *prometheus.CounterVec
	NotificationsDropped prometheus.Counter
}

// New registers all counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "camp_registrations_total",
			Help: "Committed registrations by registration type",
		}, []string{"type"}),

		RegistrationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "camp_registration_failures_total",
			Help: "Rejected registrations by reason",
		}, []string{"reason"}), // validation, access, duplicate, capacity, selection, persistence

		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "camp_notifications_total",
			Help: "Notification attempts by notifier and result",
		}, []string{"notifier", "result"}),

		NotificationsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "camp_notifications_dropped_total",
			Help: "Notifications dropped because the queue was full",
		}),
	}
}

func (m *Metrics) IncRegistration(typ string) {
	if m != nil {
		m.Registrations.WithLabelValues(typ).Inc()
	}
}

func (m *Metrics) IncRegistrationFailure(reason string) {
	if m != nil {
		m.RegistrationFailures.WithLabelValues(reason).Inc()
	}
}

// IncNotification records one notifier call; result is "sent" or "failed".
func (m *Metrics) IncNotification(notifier, result string) {
	if m != nil {
		m.Notifications.WithLabelValues(notifier, result).Inc()
	}
}

func (m *Metrics) IncNotificationDropped() {
	if m != nil {
		m.NotificationsDropped.Inc()
	}
}
