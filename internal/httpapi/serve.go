package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const shutdownGrace = 5 * time.Second

// Serve listens on addr and serves h until ctx is cancelled, then shuts
// down gracefully. A bind failure is returned immediately.
func Serve(ctx context.Context, addr string, h http.Handler, logger *zap.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return serveListener(ctx, ln, h, logger)
}

func serveListener(ctx context.Context, ln net.Listener, h http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("report_listen", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return fmt.Errorf("report server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("report server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("report server: %w", err)
	}
	logger.Info("report_stopped")
	return nil
}

// BindHint explains common listen failures, or returns "" if it has nothing
// useful to add.
func BindHint(err error, port int) string {
	switch {
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return fmt.Sprintf("Permission denied while binding port %d. Ports below 1024 usually need elevated privileges; choose a higher port with --port.", port)
	case errors.Is(err, syscall.EADDRINUSE):
		return fmt.Sprintf("Port %d is in use by a different server or is still in TIME_WAIT state after previous use. Please select a different one or wait a while.", port)
	default:
		return ""
	}
}
