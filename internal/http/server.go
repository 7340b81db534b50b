// Package http serves the ledger as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"shoebox/internal/budget"
	"shoebox/internal/core"
	"shoebox/internal/log"
	"shoebox/internal/middleware/ratelimit"
	"shoebox/internal/middleware/security"
	"shoebox/internal/middleware/trace"
	"shoebox/internal/search"
	"shoebox/internal/services"
)

const maxPageSize = 1000

// Ledger is what the handlers need from the ledger service.
type Ledger interface {
	Trends(ctx context.Context, r core.DateRange, g core.Granularity) (services.Trends, error)
	MonthOverview(ctx context.Context, now time.Time) (core.MonthOverview, error)
	MonthlyBudgets(ctx context.Context, year int) ([]budget.Bucket, error)
	RecentTransactions(ctx context.Context, now time.Time, limit int) ([]core.Transaction, error)
	UpsertBudget(ctx context.Context, rule core.BudgetRule) (core.BudgetRule, error)
	DeleteBudget(ctx context.Context, key core.BudgetKey) error
	AddTransaction(ctx context.Context, n core.NewTransaction) (core.Transaction, error)
	DeleteTransactions(ctx context.Context, ids []core.TransactionID) error
	NewSearch(order core.Order) *search.Paginator
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	ledger          Ledger
	logger          *log.Logger
	limiter         *ratelimit.Limiter
	now             func() time.Time
	pageSize        int
	defaultCurrency core.Currency
	writesPerMinute int

	shutdownOnce sync.Once
}

type Option func(*Server)

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithPageSize sets the default search page size.
func WithPageSize(n int) Option {
	return func(s *Server) {
		if n > 0 && n <= maxPageSize {
			s.pageSize = n
		}
	}
}

// WithDefaultCurrency is used when a write omits the currency.
func WithDefaultCurrency(c core.Currency) Option {
	return func(s *Server) {
		if c.Validate() == nil {
			s.defaultCurrency = c
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentHTTP)
		}
	}
}

// WithWriteRateLimit caps write requests per client and minute.
func WithWriteRateLimit(perMinute int) Option {
	return func(s *Server) { s.writesPerMinute = perMinute }
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger Ledger, opts ...Option) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ledger:          ledger,
		logger:          log.Wrap(slog.Default(), log.ComponentHTTP),
		now:             time.Now,
		pageSize:        100,
		defaultCurrency: core.CurrencyUSD,
		writesPerMinute: ratelimit.DefaultConfig().RequestsPerMinute,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: s.writesPerMinute})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/trends", s.handleTrends)
	mux.HandleFunc("GET /api/overview", s.handleOverview)
	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("PUT /api/budgets", s.handleUpsertBudget)
	mux.HandleFunc("DELETE /api/budgets", s.handleDeleteBudget)
	mux.HandleFunc("POST /api/transactions", s.handleAddTransaction)
	mux.HandleFunc("DELETE /api/transactions", s.handleDeleteTransactions)
	mux.HandleFunc("GET /api/transactions/search", s.handleSearch)

	ips := security.NewClientIPResolver()
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, ips.ClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
	}

	var h http.Handler = mux
	h = s.limiter.Middleware(ips.ClientIP, onLimit, http.MethodPost, http.MethodPut, http.MethodDelete)(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = trace.NewMiddleware(s.logger, ips.ClientIP).Handler(h)
	s.Handler = h
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.ledger.Ping(ctx); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed", log.FieldError, err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
