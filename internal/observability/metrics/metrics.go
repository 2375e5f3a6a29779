package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulerMetrics exposes counters/histograms for the scheduling flows.
type SchedulerMetrics struct {
	triageTotal     *prometheus.CounterVec
	slotQueryTotal  *prometheus.CounterVec
	bookingTotal    *prometheus.CounterVec
	bookingLatency  prometheus.Histogram
	sessionResets   prometheus.Counter
	sessionsStarted prometheus.Counter
}

func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		triageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careflow",
			Subsystem: "triage",
			Name:      "classifications_total",
			Help:      "Total symptom classifications by outcome",
		}, []string{"outcome", "specialization"}),
		slotQueryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careflow",
			Subsystem: "booking",
			Name:      "slot_queries_total",
			Help:      "Total free-slot queries against the calendar backend",
		}, []string{"status"}),
		bookingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careflow",
			Subsystem: "booking",
			Name:      "bookings_total",
			Help:      "Total booking attempts",
		}, []string{"status"}),
		bookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "careflow",
			Subsystem: "booking",
			Name:      "booking_latency_seconds",
			Help:      "Latency of calendar event creation",
			Buckets:   prometheus.DefBuckets,
		}),
		sessionResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "careflow",
			Subsystem: "conversation",
			Name:      "session_resets_total",
			Help:      "Total start-new-appointment resets",
		}),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "careflow",
			Subsystem: "conversation",
			Name:      "sessions_started_total",
			Help:      "Total patient sessions opened",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.triageTotal,
		m.slotQueryTotal,
		m.bookingTotal,
		m.bookingLatency,
		m.sessionResets,
		m.sessionsStarted,
	)
	return m
}

// ObserveTriage records a classification outcome ("classified", "emergency" or
// "fallback") and the specialization it routed to.
func (m *SchedulerMetrics) ObserveTriage(outcome, specialization string) {
	if m == nil {
		return
	}
	m.triageTotal.WithLabelValues(outcome, specialization).Inc()
}

func (m *SchedulerMetrics) ObserveSlotQuery(status string) {
	if m == nil {
		return
	}
	m.slotQueryTotal.WithLabelValues(status).Inc()
}

func (m *SchedulerMetrics) ObserveBooking(status string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingTotal.WithLabelValues(status).Inc()
	m.bookingLatency.Observe(seconds)
}

func (m *SchedulerMetrics) ObserveSessionReset() {
	if m == nil {
		return
	}
	m.sessionResets.Inc()
}

func (m *SchedulerMetrics) ObserveSessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}
