// Package http exposes the ledger as a small JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"contas/internal/core"
	"contas/internal/log"
	"contas/internal/middleware/ratelimit"
	"contas/internal/middleware/security"
	"contas/internal/middleware/trace"
	"contas/internal/services"
)

// Ledger is the part of services.LedgerService the handlers use.
type Ledger interface {
	CurrentMonth() core.Month
	Create(ctx context.Context, d core.Draft) (core.Transaction, error)
	Get(ctx context.Context, id int64) (core.Transaction, error)
	Update(ctx context.Context, id int64, d core.Draft) (core.Transaction, error)
	UpdateDetails(ctx context.Context, id int64, d core.Details) (core.Transaction, error)
	Delete(ctx context.Context, id int64) error
	TogglePaymentConfirmation(ctx context.Context, id int64, paymentMonth core.Month) (services.ToggleResult, error)
	Confirmations(ctx context.Context, id int64) ([]core.Month, error)
	Statement(ctx context.Context, f core.Filters) (core.MonthStatement, error)
	Ping(ctx context.Context) error
}

// CacheStats is satisfied by *cache.LRUCache.
type CacheStats interface {
	Size() int
	Stats() (hits, misses uint64)
}

// Options configures a Server. Only Ledger is required.
type Options struct {
	Ledger  Ledger
	Logger  *log.Logger
	Limiter *ratelimit.Limiter
	// Listings exposes the month listing cache on /metrics.
	Listings CacheStats
	Headers  *security.HeadersConfig
}

type Server struct {
	http.Server
	ledger   Ledger
	logger   *log.Logger
	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	listings CacheStats
	started  time.Time
}

// NewServer wires routes and middleware. The chain, outermost first, is:
// trace, security headers, probe detection, rate limit, request logger.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	headers := security.DefaultHeadersConfig()
	if opts.Headers != nil {
		headers = *opts.Headers
	}

	s := &Server{
		ledger:   opts.Ledger,
		logger:   logger,
		detector: security.NewDetector(),
		limiter:  opts.Limiter,
		listings: opts.Listings,
		started:  time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("PATCH /api/transactions/{id}", s.handleUpdateDetails)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/toggle-payment-confirmation", s.handleTogglePaymentConfirmation)
	mux.HandleFunc("GET /api/transactions/{id}/confirmations", s.handleConfirmations)

	var handler http.Handler = mux
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = log.Middleware(logger)(handler)
	if s.limiter != nil {
		handler = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
		})(handler)
	}
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(headers).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
	return s.Shutdown(shutdownCtx)
}
