package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/macocr/internal/ocr"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	ocr         *ocr.Service
	token       string
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	rateLimiter *RateLimiter
}

// Config holds server configuration. Token is fixed for the lifetime of the
// server; an empty token leaves every route open.
type Config struct {
	Host        string
	Port        int
	Token       string
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	RateLimit   RateLimitConfig
}

// RateLimitConfig holds per-client limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Engine  string `json:"engine,omitempty"`
	Time    string `json:"time"`
}

// NewServer creates a new OCR server backed by svc.
func NewServer(config Config, svc *ocr.Service) (*Server, error) {
	if svc == nil {
		return nil, errors.New("ocr service is required")
	}
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 50
	}
	if config.CORSOrigin == "" {
		config.CORSOrigin = "*"
	}

	s := &Server{
		ocr:         svc,
		token:       config.Token,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
	}
	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(
			config.RateLimit.RequestsPerMinute,
			config.RateLimit.RequestsPerHour,
			config.RateLimit.MaxRequestsPerDay,
			config.RateLimit.MaxDataPerDay,
		)
	}
	return s, nil
}

// AuthEnabled reports whether requests must carry the configured token.
func (s *Server) AuthEnabled() bool {
	return s.token != ""
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.Handle("/health", s.chain(s.healthHandler, false))
	mux.Handle("/metrics", s.chain(metricsHandler().ServeHTTP, false))
	mux.Handle("/ocr", s.chain(s.ocrHandler, true))
	mux.Handle("/ws/ocr", s.chain(s.ocrWebSocketHandler, true))
}

// Handler returns a mux with every route installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

// HTTPServer builds the listening server for host:port using the configured
// timeouts.
func (s *Server) HTTPServer(host string, port int) *http.Server {
	srv := &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if s.timeoutSec > 0 {
		srv.ReadTimeout = time.Duration(s.timeoutSec) * time.Second
		// No WriteTimeout: websocket connections are long lived.
	}
	return srv
}

func (s *Server) maxBodyBytes() int64 {
	return s.maxUploadMB * 1024 * 1024
}

func (s *Server) String() string {
	return fmt.Sprintf("macocr server (engine %s, auth %t)", s.ocr.EngineName(), s.AuthEnabled())
}
