package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/metrics"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/whitelist"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

/*
Server exposes a generated proofs file over HTTP so claim front-ends can look
up an account's amount and proof without shipping the whole file.

  GET /root
    - { merkleRoot, tokenTotal, count }

  GET /proof/{account}
    - { account, amount, proof } for a whitelisted account
    - 400 for a malformed address, 404 when the account is not in the tree

  GET /healthz
    - 200 "ok"

  GET /metrics
    - prometheus exposition of the Gatherer passed in Config

Every route except /healthz and /metrics is rate limited per client IP and
answers 429 when the bucket is empty.
*/
type Server struct {
	proofs     *whitelist.ProofsFile
	metrics    *metrics.Metrics
	limiter    *RateLimiter
	logger     *zap.Logger
	httpServer *http.Server
}

type Config struct {
	Port            int
	Proofs          *whitelist.ProofsFile
	Metrics         *metrics.Metrics
	Gatherer        prometheus.Gatherer
	RateLimitPerSec float64
	RateLimitBurst  int

	// TrustedProxies lists the IPs or CIDRs of reverse proxies whose
	// X-Real-IP and X-Forwarded-For headers identify the client.
	TrustedProxies []string
}

// NewServer creates a new server instance
func NewServer(cfg *Config, logger *zap.Logger) (*Server, error) {
	if cfg == nil || cfg.Proofs == nil {
		return nil, fmt.Errorf("proofs file is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	trusted, err := ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	s := &Server{
		proofs:  cfg.Proofs,
		metrics: cfg.Metrics,
		limiter: NewRateLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst, trusted),
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.Handle("GET /root", s.limiter.Middleware(http.HandlerFunc(s.handleRoot)))
	mux.Handle("GET /proof/{account}", s.limiter.Middleware(http.HandlerFunc(s.handleProof)))
	mux.HandleFunc("GET /healthz", s.handleHealth)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.withStatusMetrics(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go func() {
		s.logger.Sugar().Infow("Starting proof server",
			"port", s.httpServer.Addr,
			"merkle_root", s.proofs.MerkleRoot.Hex(),
			"claims", len(s.proofs.Claims),
		)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Sugar().Errorw("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Shutdown drains in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.httpServer.Shutdown(ctx)
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withStatusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.ObserveProofRequest(fmt.Sprintf("%d", rec.status))
	})
}
