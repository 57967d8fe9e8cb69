package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	appconfig "github.com/wolfman30/docbook-ai/internal/config"
	"github.com/wolfman30/docbook-ai/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting docbook-ai API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"doctor_store", cfg.ResolvedDoctorStore(),
		"confirm_policy", cfg.ConfirmPolicy,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	listener, err := newListener(":"+cfg.Port, cfg.MaxConnections)
	if err != nil {
		logger.Error("failed to listen", "error", err)
		os.Exit(1)
	}

	// WebSocket connections set their own deadlines, so no write timeout here.
	srv := &http.Server{
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	app.startBackground(workerCtx)

	go func() {
		logger.Info("server listening", "addr", listener.Addr().String(), "max_connections", cfg.MaxConnections)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	cancelWorkers()
	app.close()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// newListener opens addr and caps concurrent connections when limit > 0.
func newListener(addr string, limit int) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if limit > 0 {
		ln = netutil.LimitListener(ln, limit)
	}
	return ln, nil
}
