/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package httpserver provides an HTTP server that runs as a service.Unit.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/atomic"

	"github.com/acronis/go-keysem/log"
	"github.com/acronis/go-keysem/service"
)

// HTTPServer wraps http.Server and implements service.Unit.
type HTTPServer struct {
	HTTPServer *http.Server
	Logger     log.FieldLogger
	Config     *Config

	listener net.Listener
	port     atomic.Int32
	done     atomic.Value
}

var _ service.Unit = (*HTTPServer)(nil)

// New creates a new HTTPServer that serves handler.
func New(cfg *Config, logger log.FieldLogger, handler http.Handler) *HTTPServer {
	return NewWithListener(cfg, logger, handler, nil)
}

// NewWithListener is like New but serves on an already opened listener if it's not nil.
func NewWithListener(cfg *Config, logger log.FieldLogger, handler http.Handler, listener net.Listener) *HTTPServer {
	return &HTTPServer{
		HTTPServer: &http.Server{
			Addr:              cfg.Address,
			Handler:           handler,
			WriteTimeout:      cfg.Timeouts.Write,
			ReadTimeout:       cfg.Timeouts.Read,
			ReadHeaderTimeout: cfg.Timeouts.ReadHeader,
			IdleTimeout:       cfg.Timeouts.Idle,
		},
		Logger:   logger,
		Config:   cfg,
		listener: listener,
	}
}

// Start serves HTTP in a blocking way. A listen or serve failure is sent to fatalErr.
func (s *HTTPServer) Start(fatalErr chan<- error) {
	done := make(chan struct{})
	defer close(done)
	s.done.Store(done)

	logger := s.Logger.With(
		log.String("address", s.HTTPServer.Addr),
		log.Duration("write_timeout", s.HTTPServer.WriteTimeout),
		log.Duration("read_timeout", s.HTTPServer.ReadTimeout),
		log.Duration("shutdown_timeout", s.Config.Timeouts.Shutdown),
	)
	logger.Info("starting HTTP server...")

	if s.listener == nil {
		var err error
		if s.listener, err = net.Listen("tcp", s.HTTPServer.Addr); err != nil {
			logger.Error("HTTP server error", log.Error(err))
			fatalErr <- err
			return
		}
	}
	if _, portStr, err := net.SplitHostPort(s.listener.Addr().String()); err == nil {
		if port, parseErr := strconv.ParseInt(portStr, 10, 32); parseErr == nil {
			s.port.Store(int32(port))
		}
	}

	if err := s.HTTPServer.Serve(s.listener); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("HTTP server closed")
			return
		}
		logger.Error("HTTP server error", log.Error(err))
		fatalErr <- err
	}
}

// Stop shuts the server down within the configured shutdown timeout, or closes it right away if not gracefully.
func (s *HTTPServer) Stop(gracefully bool) error {
	if gracefully {
		ctx, cancel := context.WithTimeout(context.Background(), s.Config.Timeouts.Shutdown)
		defer cancel()
		s.Logger.Info("shutting down HTTP server...", log.Duration("timeout", s.Config.Timeouts.Shutdown))
		if err := s.HTTPServer.Shutdown(ctx); err != nil {
			s.Logger.Error("HTTP server shutting down error", log.Error(err))
			return err
		}
	} else {
		s.Logger.Info("closing HTTP server...")
		if err := s.HTTPServer.Close(); err != nil {
			s.Logger.Error("HTTP server closing error", log.Error(err))
			return err
		}
	}
	if done, ok := s.done.Load().(chan struct{}); ok {
		<-done
	}
	s.Logger.Info("HTTP server is stopped")
	return nil
}

// Port returns the TCP port the server listens on, or 0 if it hasn't started listening yet.
func (s *HTTPServer) Port() int {
	return int(s.port.Load())
}
