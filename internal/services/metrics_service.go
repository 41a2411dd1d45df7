package services

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/benmeehan/olt-gateway/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const metricsShutdownTimeout = 5 * time.Second

// MetricsService serves the gateway's Prometheus registry over HTTP.
type MetricsService struct {
	listen  string
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup
}

// NewMetricsService initializes and returns a new instance of MetricsService.
func NewMetricsService(listen string, m *metrics.Metrics, logger zerolog.Logger) *MetricsService {
	return &MetricsService{
		listen:  listen,
		metrics: m,
		logger:  logger,
	}
}

// Start binds the listen address and serves /metrics and /health in the background.
func (s *MetricsService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("metrics service is already running")
	}

	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		s.logger.Error().Err(err).Str("listen", s.listen).Msg("Failed to bind metrics listener")
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.listener = ln

	server := s.server
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Metrics server stopped unexpectedly")
		}
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("MetricsService started successfully")
	return nil
}

// Stop shuts the HTTP server down and waits for the serve loop to exit.
func (s *MetricsService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return errors.New("metrics service is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()

	err := s.server.Shutdown(ctx)
	s.wg.Wait()
	s.server = nil
	s.listener = nil

	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to stop metrics server")
		return err
	}
	s.logger.Info().Msg("MetricsService stopped successfully")
	return nil
}

// Addr returns the bound listen address, or "" when stopped.
func (s *MetricsService) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
