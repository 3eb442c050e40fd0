package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// Deps are the use cases the API exposes.
type Deps struct {
	Auth     *auth.Provider
	Wallets  *services.WalletService
	Expenses *services.ExpenseService
	Goals    *services.GoalService
	Budgets  *services.BudgetService
	// Store is pinged by /readyz.
	Store storage.Store
}

// Options tune the server's middleware.
type Options struct {
	Logger             *applog.Logger
	RateLimitPerMinute int
	CORSOrigins        []string
}

type Server struct {
	http.Server
	deps     Deps
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		deps:     deps,
		detector: detector,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:   trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/token", s.handleToken)
	mux.Handle("GET /api/auth/me", s.authed(s.handleMe))

	mux.Handle("GET /api/wallets", s.authed(s.handleListWallets))
	mux.Handle("POST /api/wallets", s.authed(s.handleCreateWallet))
	mux.Handle("GET /api/wallets/{id}", s.authed(s.handleGetWallet))
	mux.Handle("POST /api/wallets/{id}/add_balance", s.authed(s.handleAddBalance))
	mux.Handle("DELETE /api/wallets/{id}", s.authed(s.handleDeleteWallet))

	mux.Handle("GET /api/expenses", s.authed(s.handleListExpenses))
	mux.Handle("POST /api/expenses", s.authed(s.handleCreateExpense))
	mux.Handle("GET /api/expenses/{id}", s.authed(s.handleGetExpense))
	mux.Handle("PUT /api/expenses/{id}", s.authed(s.handleUpdateExpense))
	mux.Handle("DELETE /api/expenses/{id}", s.authed(s.handleDeleteExpense))

	mux.Handle("GET /api/goals", s.authed(s.handleListGoals))
	mux.Handle("POST /api/goals", s.authed(s.handleCreateGoal))
	mux.Handle("GET /api/goals/{id}", s.authed(s.handleGetGoal))
	mux.Handle("PUT /api/goals/{id}", s.authed(s.handleUpdateGoal))
	mux.Handle("DELETE /api/goals/{id}", s.authed(s.handleDeleteGoal))
	mux.Handle("POST /api/goals/{id}/add_funds", s.authed(s.handleAddFunds))

	mux.Handle("GET /api/budgets", s.authed(s.handleListBudgets))
	mux.Handle("POST /api/budgets", s.authed(s.handleCreateBudget))
	mux.Handle("GET /api/budgets/{id}", s.authed(s.handleGetBudget))
	mux.Handle("GET /api/budgets/{id}/status", s.authed(s.handleBudgetStatus))
	mux.Handle("PUT /api/budgets/{id}", s.authed(s.handleUpdateBudget))
	mux.Handle("DELETE /api/budgets/{id}", s.authed(s.handleDeleteBudget))

	// Outermost first: tracing sees every response, including rejections.
	var h http.Handler = mux
	h = s.rateLimit(h)
	h = detector.Middleware(h)
	h = security.CORS(opts.CORSOrigins)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = applog.RequestIDMiddleware(trace.RequestID)(h)
	h = applog.Middleware(logger)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// rateLimit throttles mutating requests per client IP.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, try again later").Write(w)
	})(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isMutating(r.Method) {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops background workers, then drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(s.limiter.Stop)
	return s.Server.Shutdown(ctx)
}

// Metrics exposes request counters for the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "unavailable", "store unavailable").Write(w)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
