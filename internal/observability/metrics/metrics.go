package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "docbook"

// BookingMetrics exposes counters for appointment ledger transitions.
type BookingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	cancellationsTotal *prometheus.CounterVec
	confirmationsTotal *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "bookings_total",
			Help:      "Booking attempts by result",
		}, []string{"result"}),
		cancellationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "cancellations_total",
			Help:      "Cancellation attempts by result",
		}, []string{"result"}),
		confirmationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "confirmations_total",
			Help:      "Deferred confirmations by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.cancellationsTotal, m.confirmationsTotal)
	return m
}

func (m *BookingMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveCancellation(result string) {
	if m == nil {
		return
	}
	m.cancellationsTotal.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveConfirmation(outcome string) {
	if m == nil {
		return
	}
	m.confirmationsTotal.WithLabelValues(outcome).Inc()
}

// NotificationMetrics counts emitted notifications and side-channel failures.
type NotificationMetrics struct {
	emittedTotal     *prometheus.CounterVec
	sideChannelFails *prometheus.CounterVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	m := &NotificationMetrics{
		emittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "emitted_total",
			Help:      "Notifications persisted by type",
		}, []string{"type"}),
		sideChannelFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "side_channel_failures_total",
			Help:      "Best-effort delivery failures by channel",
		}, []string{"channel"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.emittedTotal, m.sideChannelFails)
	return m
}

func (m *NotificationMetrics) ObserveEmitted(notificationType string) {
	if m == nil {
		return
	}
	m.emittedTotal.WithLabelValues(notificationType).Inc()
}

func (m *NotificationMetrics) ObserveSideChannelFailure(channel string) {
	if m == nil {
		return
	}
	m.sideChannelFails.WithLabelValues(channel).Inc()
}

// ChatMetrics exposes assistant reply counters and model latency.
type ChatMetrics struct {
	repliesTotal *prometheus.CounterVec
	llmLatency   *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "replies_total",
			Help:      "Assistant replies by source (model or fallback)",
		}, []string{"source"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "llm_latency_seconds",
			Help:      "Latency of language model calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.repliesTotal, m.llmLatency)
	return m
}

func (m *ChatMetrics) ObserveReply(source string) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(source).Inc()
}

func (m *ChatMetrics) ObserveLLMLatency(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(outcome).Observe(seconds)
}
