package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prepforge/internal/observability"
)

// Start wires observability, TLS, and the fallback hook together, then serves
// until a shutdown signal arrives.
func (s *Server) Start() error {
	obsCfg := observability.GetObservabilityConfig(s.AppConfig, s.Version)
	om, err := observability.NewObservabilityManager(obsCfg, s.AppConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := om.Shutdown(ctx); err != nil {
			s.Logger.LogError(err, "Failed to shutdown observability")
		}
	}()

	// Count served fallbacks per operation. The hook must be in place
	// before the first request is handled.
	metrics := om.GetMetrics()
	s.AIClient.OnFallback = func(ctx context.Context, operation string) {
		metrics.RecordFallback(ctx, operation, om)
	}

	httpServer := s.setupHTTPServer(om)

	vaultClient, err := s.initializeVaultClient()
	if err != nil {
		return err
	}

	if err := s.configureTLS(httpServer, vaultClient, om); err != nil {
		return err
	}

	s.displayServerInfo()

	return s.startWithGracefulShutdown(httpServer)
}

// setupHTTPServer assembles the route mux behind the otelhttp middleware.
func (s *Server) setupHTTPServer(om *observability.ObservabilityManager) *http.Server {
	mux := s.setupRoutes(om)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.Host, s.Port),
		Handler:      om.HTTPMiddleware()(mux),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// startWithGracefulShutdown runs the server until SIGINT or SIGTERM arrives
// or the listener fails, then drains connections.
func (s *Server) startWithGracefulShutdown(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", srv.Addr, "tls_enabled", srv.TLSConfig != nil)
		if err := s.listen(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-sigCh:
		s.Logger.Info("Shutdown signal received", "signal", sig.String())
		return s.performGracefulShutdown(srv)
	}
}

// listen picks the serving mode. With content-sourced certificates the TLS
// config already carries them, so the file arguments stay empty.
func (s *Server) listen(srv *http.Server) error {
	if srv.TLSConfig == nil {
		return srv.ListenAndServe()
	}
	if s.TLSConfig.CertContent != "" || s.TLSConfig.KeyContent != "" {
		return srv.ListenAndServeTLS("", "")
	}
	return srv.ListenAndServeTLS(s.TLSConfig.CertFile, s.TLSConfig.KeyFile)
}

// performGracefulShutdown stops the background components and drains the
// HTTP server, forcing a close when the drain deadline passes.
func (s *Server) performGracefulShutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.CertificateManager != nil {
		if err := s.CertificateManager.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop certificate manager")
		}
	}

	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}

	if err := s.AIClient.Close(); err != nil {
		s.Logger.LogError(err, "Failed to close AI client")
	}

	s.Logger.Info("Draining HTTP connections")
	if err := srv.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Graceful shutdown failed, forcing close")
		return srv.Close()
	}

	s.Logger.Info("Server shutdown complete")
	return nil
}
