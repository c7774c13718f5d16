package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/aws/clock-bound/internal/clockbound"
	"github.com/aws/clock-bound/internal/config"
)

// HTTPServer serves the CEB status API (SPEC_FULL.md §4.11) over a
// StatusView, which tracks the last record the runner published.
type HTTPServer struct {
	config config.HTTPConfig
	logger *logrus.Logger
	view   *StatusView
	server *http.Server
}

// StatusResponse is the JSON body of GET /api/v1/status.
type StatusResponse struct {
	ClockStatus     string    `json:"clock_status"`
	ChronyStatus    string    `json:"chrony_status,omitempty"`
	DisruptionState string    `json:"disruption_state,omitempty"`
	AsOfSec         int64     `json:"as_of_sec"`
	VoidAfterSec    int64     `json:"void_after_sec"`
	BoundNsec       int64     `json:"bound_nsec"`
	MaxDriftPPB     uint32    `json:"max_drift_rate_ppb"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewHTTPServer builds an HTTPServer backed by view.
func NewHTTPServer(cfg config.HTTPConfig, view *StatusView, logger *logrus.Logger) *HTTPServer {
	return &HTTPServer{config: cfg, view: view, logger: logger}
}

// Start runs the HTTP server until Stop is called or it fails to bind.
func (s *HTTPServer) Start() error {
	if s.logger.Level < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(s.logger.Writer()))

	api := router.Group("/api/v1")
	{
		api.GET("/status", s.handleStatus)
		api.GET("/healthz", s.handleHealthz)
	}

	s.server = &http.Server{
		Addr:    s.config.BindAddr,
		Handler: router,
	}

	s.logger.WithField("addr", s.config.BindAddr).Info("starting status HTTP server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status HTTP server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping status HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *HTTPServer) handleStatus(c *gin.Context) {
	record, chronyStatus, disruptionState, ok := s.view.Snapshot()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no record published yet"})
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		ClockStatus:     record.ClockStatus.String(),
		ChronyStatus:    chronyStatus,
		DisruptionState: disruptionState,
		AsOfSec:         record.AsOf.Sec,
		VoidAfterSec:    record.VoidAfter.Sec,
		BoundNsec:       record.BoundNsec,
		MaxDriftPPB:     record.MaxDriftPPB,
		Timestamp:       time.Now(),
	})
}

func (s *HTTPServer) handleHealthz(c *gin.Context) {
	record, _, _, ok := s.view.Snapshot()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unknown"})
		return
	}

	healthy := record.ClockStatus == clockbound.StatusSynchronized
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": record.ClockStatus.String()})
}
