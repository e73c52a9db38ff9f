// Package server exposes the receiver control surface over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roman-kulish/spectrum-relay/internal/sdr"
	"github.com/roman-kulish/spectrum-relay/internal/sdr/driver"
)

const shutdownTimeout = 5 * time.Second

// Controller is the receiver control surface served by the API.
// *sdr.Controller is a Controller.
type Controller interface {
	State() sdr.State
	SetFrequency(hz float64) error
	SetSampleRate(hz float64) error
	SetGain(db float64) error
}

// Stream describes the published spectra.
type Stream struct {
	FFTSize     int    `json:"fftSize"`
	DataAddress string `json:"dataAddress"`
}

type receiverResponse struct {
	sdr.State
	Stream
}

type setRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// WithLogger sets the logger of the Server.
func WithLogger(logger *slog.Logger) func(*Server) {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server is the HTTP control API.
type Server struct {
	ctrl   Controller
	stream Stream
	engine *gin.Engine
	logger *slog.Logger
}

// New creates the API for ctrl. stream is reported as is.
func New(ctrl Controller, stream Stream, options ...func(*Server)) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := Server{
		ctrl:   ctrl,
		stream: stream,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.logRequests)

	s.engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	v1 := s.engine.Group("/v1/receiver")
	v1.GET("", s.getReceiver)
	v1.PUT("/frequency", s.set(ctrl.SetFrequency))
	v1.PUT("/tuning", s.set(ctrl.SetFrequency))
	v1.PUT("/sample-rate", s.set(ctrl.SetSampleRate))
	v1.PUT("/gain", s.set(ctrl.SetGain))

	return &s
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve accepts connections on l until ctx is done.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(l)
	}()

	s.logger.Info("control API listening", slog.String("address", l.Addr().String()))

	select {
	case err := <-errc:
		return fmt.Errorf("serving control API: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down control API: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving control API: %w", err)
	}
	return nil
}

// ListenAndServe listens on the TCP address addr and serves until ctx is
// done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, l)
}

func (s *Server) getReceiver(c *gin.Context) {
	c.JSON(http.StatusOK, receiverResponse{State: s.ctrl.State(), Stream: s.stream})
}

func (s *Server) set(fn func(float64) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		if err := fn(*req.Value); err != nil {
			c.JSON(statusOf(err), errorResponse{Error: err.Error()})
			return
		}

		c.JSON(http.StatusOK, receiverResponse{State: s.ctrl.State(), Stream: s.stream})
	}
}

func statusOf(err error) int {
	var driverErr *driver.DriverError

	switch {
	case errors.Is(err, sdr.ErrNegativeValue):
		return http.StatusBadRequest
	case errors.Is(err, driver.ErrUnsupported):
		return http.StatusUnprocessableEntity
	case errors.As(err, &driverErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()

	s.logger.Debug("request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.FullPath()),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("elapsed", time.Since(start)))
}
