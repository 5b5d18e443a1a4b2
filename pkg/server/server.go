// Package server exposes the accepted model over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"netsecml/pkg/audit"
	"netsecml/pkg/config"
	"netsecml/pkg/estimator"
	"netsecml/pkg/registry"
)

type Config struct {
	Addr           string
	AllowedOrigins []string
	// ReportsDir holds metrics.json, read by /model-info without a registry.
	ReportsDir string
	RateLimit  rate.Limit
	Burst      int
}

func DefaultConfig() Config {
	return Config{
		Addr:           ":8000",
		AllowedOrigins: []string{"http://localhost:3000"},
		ReportsDir:     config.ReportsDir,
		RateLimit:      20,
		Burst:          40,
	}
}

// Auditor receives every prediction served.
type Auditor interface {
	Log(ctx context.Context, ev audit.Event) error
}

type Server struct {
	cfg     Config
	log     *zap.Logger
	model   *estimator.NetworkModel
	reg     registry.Registry
	auditor Auditor

	engine *gin.Engine
	http   *http.Server

	metrics     *prometheus.Registry
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	predictions *prometheus.CounterVec
}

type Option func(*Server)

func WithRegistry(r registry.Registry) Option {
	return func(s *Server) { s.reg = r }
}

func WithAuditor(a Auditor) Option {
	return func(s *Server) { s.auditor = a }
}

// New builds the router. A nil model is allowed: /health then reports 503
// and the prediction routes refuse requests.
func New(cfg Config, m *estimator.NetworkModel, log *zap.Logger, opts ...Option) *Server {
	s := &Server{cfg: cfg, log: log, model: m, metrics: prometheus.NewRegistry()}
	for _, opt := range opts {
		opt(s)
	}
	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netsec",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})
	s.latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "netsec",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
	s.predictions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netsec",
		Name:      "predictions_total",
		Help:      "Classified rows by endpoint and predicted label.",
	}, []string{"endpoint", "label"})
	s.metrics.MustRegister(s.requests, s.latency, s.predictions,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s.engine = s.routes()
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(s.requestLogger(), s.recovery(), corsMiddleware(s.cfg.AllowedOrigins), securityHeaders())
	r.Use(newRateLimiter(s.cfg.RateLimit, s.cfg.Burst).limit())

	r.GET("/health", s.handleHealth)
	r.POST("/predict", s.handlePredict)
	r.POST("/predict/text", s.handlePredictText)
	r.GET("/model-info", s.handleModelInfo)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{})))
	return r
}

func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is done, then shuts down within five seconds.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info("Server starting", zap.String("addr", s.cfg.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	s.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
