package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"groundlink/pkg/log"
	"groundlink/pkg/models"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultShutdownTimeout = 10 * time.Second

// StationSource is the read-only station table.
type StationSource interface {
	All() []models.Station
	Get(id string) (models.Station, bool)
	Has(id string) bool
	Hub() string
}

// HealthSource exposes the live station health view.
type HealthSource interface {
	Snapshot(id string) (models.HealthSnapshot, bool)
	Snapshots() []models.HealthSnapshot
	IsHealthy(id string) bool
}

// TransferService accepts and tracks transfers.
type TransferService interface {
	Submit(request models.TransferRequest) (string, error)
	Status(id string) (models.TransferState, bool)
	List() []models.TransferState
	Cancel(id string) bool
	Stop(id string) bool
}

// Server exposes stations, health and transfers over HTTP.
type Server struct {
	stations                StationSource
	health                  HealthSource
	transfers               TransferService
	gracefulShutdownTimeout time.Duration
	echo                    *echo.Echo
}

// NewServer wires the API routes. A zero gracefulShutdownTimeout selects 10s.
func NewServer(stations StationSource, health HealthSource, transfers TransferService, gracefulShutdownTimeout time.Duration) *Server {
	if gracefulShutdownTimeout <= 0 {
		gracefulShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{
		stations:                stations,
		health:                  health,
		transfers:               transfers,
		gracefulShutdownTimeout: gracefulShutdownTimeout,
		echo:                    echo.New(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	log.Info().Str("addr", addr).Msg("Starting groundlink API server")

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.gracefulShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	log.Info().Msg("Server gracefully stopped")
	return nil
}

func (s *Server) setupRoutes() {
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("Request")
			return nil
		},
	}))
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())

	s.echo.GET("/healthz", s.liveness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.GET("/stations", s.listStations)
	s.echo.GET("/stations/:id", s.getStation)
	s.echo.GET("/stations/:id/health", s.getStationHealth)
	s.echo.GET("/health", s.listHealth)
	s.echo.GET("/route", s.getRoute)

	s.echo.POST("/transfers", s.submitTransfer)
	s.echo.GET("/transfers", s.listTransfers)
	s.echo.GET("/transfers/:id", s.getTransfer)
	s.echo.POST("/transfers/:id/cancel", s.cancelTransfer)
	s.echo.POST("/transfers/:id/stop", s.stopTransfer)
}

func (s *Server) liveness(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
