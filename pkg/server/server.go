package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"kcmc/pkg/config"
	"kcmc/pkg/logger"
	"kcmc/pkg/metrics"
)

const defaultShutdownTimeout = 10 * time.Second

// Closer освобождает ресурс при остановке сервера
type Closer func(ctx context.Context) error

// HTTPServer обёртка над http.Server с graceful shutdown
type HTTPServer struct {
	server      *http.Server
	config      *config.Config
	serviceName string
	closers     []namedCloser
}

type namedCloser struct {
	name string
	fn   Closer
}

// New создаёт HTTP сервер. При http.h2c обработчик принимает HTTP/2 без TLS.
func New(cfg *config.Config, handler http.Handler) *HTTPServer {
	if cfg.HTTP.H2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	return &HTTPServer{
		server: &http.Server{
			Addr:         cfg.HTTP.Address(),
			Handler:      handler,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
		config:      cfg,
		serviceName: cfg.App.Name,
	}
}

// Handler возвращает итоговый обработчик
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// OnShutdown регистрирует ресурс, закрываемый после остановки приёма запросов.
// Закрываются в обратном порядке регистрации.
func (s *HTTPServer) OnShutdown(name string, fn Closer) {
	s.closers = append(s.closers, namedCloser{name: name, fn: fn})
}

// Run слушает порт из конфигурации до SIGINT/SIGTERM или отмены ctx
func (s *HTTPServer) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lc := net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return s.Serve(ctx, lis)
}

// Serve обслуживает lis до отмены ctx, затем выполняет graceful shutdown
func (s *HTTPServer) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)

	go func() {
		protocol := "HTTP/1.1"
		if s.config.HTTP.H2C {
			protocol = "HTTP/1.1 + H2C"
		}
		logger.Log.Info("Starting HTTP server",
			"service", s.serviceName,
			"address", lis.Addr().String(),
			"protocol", protocol,
			"environment", s.config.App.Environment,
			"version", s.config.App.Version,
		)
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if s.config.Metrics.Enabled {
		metrics.Get().SetServiceInfo(s.config.App.Version, s.config.App.Environment)
	}

	select {
	case err, ok := <-errCh:
		if ok {
			s.closeAll(context.Background())
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Log.Info("Received shutdown signal", "reason", context.Cause(ctx))
	}

	return s.shutdown()
}

func (s *HTTPServer) shutdown() error {
	timeout := s.config.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := s.server.Shutdown(ctx)
	if err != nil {
		logger.Log.Warn("Forcing server stop", "error", err)
		_ = s.server.Close()
	} else {
		logger.Log.Info("Server stopped gracefully")
	}

	s.closeAll(ctx)
	return err
}

func (s *HTTPServer) closeAll(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		c := s.closers[i]
		if err := c.fn(ctx); err != nil {
			logger.Log.Warn("Failed to close resource", "resource", c.name, "error", err)
		}
	}
}
