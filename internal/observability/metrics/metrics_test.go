package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if labelsMatch(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(metric *dto.Metric, want map[string]string) bool {
	got := map[string]string{}
	for _, pair := range metric.GetLabel() {
		got[pair.GetName()] = pair.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestBookingMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObserveBooking("booked")
	m.ObserveBooking("booked")
	m.ObserveBooking("slot_unavailable")
	m.ObserveCancellation("cancelled")
	m.ObserveConfirmation("skipped")

	if got := counterValue(t, reg, "docbook_ledger_bookings_total", map[string]string{"result": "booked"}); got != 2 {
		t.Fatalf("expected 2 bookings, got %v", got)
	}
	if got := counterValue(t, reg, "docbook_ledger_confirmations_total", map[string]string{"outcome": "skipped"}); got != 1 {
		t.Fatalf("expected 1 skipped confirmation, got %v", got)
	}
}

func TestNotificationAndChatMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	n := NewNotificationMetrics(reg)
	n.ObserveEmitted("appointment_cancelled")
	n.ObserveSideChannelFailure("email")

	c := NewChatMetrics(reg)
	c.ObserveReply("fallback")
	c.ObserveLLMLatency("error", 0.2)

	if got := counterValue(t, reg, "docbook_chat_replies_total", map[string]string{"source": "fallback"}); got != 1 {
		t.Fatalf("expected 1 fallback reply, got %v", got)
	}
	if got := counterValue(t, reg, "docbook_notifications_side_channel_failures_total", map[string]string{"channel": "email"}); got != 1 {
		t.Fatalf("expected 1 email failure, got %v", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var b *BookingMetrics
	b.ObserveBooking("booked")
	b.ObserveCancellation("cancelled")
	b.ObserveConfirmation("confirmed")

	var n *NotificationMetrics
	n.ObserveEmitted("appointment_confirmed")
	n.ObserveSideChannelFailure("realtime")

	var c *ChatMetrics
	c.ObserveReply("model")
	c.ObserveLLMLatency("ok", 0.1)
}
