package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appconfig "github.com/wolfman30/docbook-ai/internal/config"
	"github.com/wolfman30/docbook-ai/internal/identity"
	"github.com/wolfman30/docbook-ai/pkg/logging"
)

func TestSetupMetricsExposesMetrics(t *testing.T) {
	handler, m := setupMetrics()
	if handler == nil || m == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	m.booking.ObserveBooking("success")
	m.chat.ObserveReply("fallback")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{"docbook_ledger_bookings_total", "docbook_chat_replies_total", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s to be exported", name)
		}
	}
}

func TestBuildApplicationInMemory(t *testing.T) {
	cfg := &appconfig.Config{
		AuthJWTSecret:         "test-secret",
		ConfirmationDelay:     time.Minute,
		ConfirmPolicy:         "pending_only",
		UseMemoryQueue:        true,
		WorkerCount:           1,
		RateLimitRPS:          100,
		RateLimitBurst:        100,
		SchedulerPollInterval: time.Second,
	}
	logger := logging.New("error")

	app, err := buildApplication(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.worker == nil {
		t.Fatalf("expected chat worker with memory queue")
	}
	if app.poller != nil || app.memoryTasks == nil {
		t.Fatalf("expected in-process scheduler without redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.startBackground(ctx)

	rr := httptest.NewRecorder()
	app.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected health 200, got %d", rr.Code)
	}

	token, err := identity.NewVerifier("test-secret", "").Issue(identity.User{ID: "patient-1"}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	app.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected authenticated list 200, got %d: %s", rr.Code, rr.Body.String())
	}

	cancel()
	app.close()
}

func TestBuildApplicationRejectsMissingBackend(t *testing.T) {
	cfg := &appconfig.Config{DoctorStore: "postgres"}
	if _, err := buildApplication(context.Background(), cfg, logging.New("error")); err == nil {
		t.Fatalf("expected error for postgres doctor store without DATABASE_URL")
	}
}

func TestNewListenerLimitsConnections(t *testing.T) {
	ln, err := newListener("127.0.0.1:0", 1)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	if _, ok := ln.(*net.TCPListener); ok {
		t.Fatalf("expected limited listener wrapper")
	}

	unlimited, err := newListener("127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer unlimited.Close()
	if _, ok := unlimited.(*net.TCPListener); !ok {
		t.Fatalf("expected plain TCP listener without a limit, got %T", unlimited)
	}
}
