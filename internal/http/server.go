// Package http serves the JSON API consumed by the dompet clients.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"dompet/internal/core"
	"dompet/internal/export"
	"dompet/internal/log"
	"dompet/internal/middleware/ratelimit"
	"dompet/internal/middleware/security"
	"dompet/internal/middleware/trace"
)

// Ledger is the write side of the API.
type Ledger interface {
	CreateTransaction(ctx context.Context, userID int64, kind core.Kind, in core.TransactionInput) (core.Transaction, error)
	GetTransaction(ctx context.Context, userID int64, kind core.Kind, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID int64, kind core.Kind) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, userID int64, kind core.Kind, id int64, in core.TransactionInput) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID int64, kind core.Kind, id int64) error

	CreateInstallment(ctx context.Context, userID int64, in core.InstallmentInput) (core.InstallmentView, error)
	GetInstallment(ctx context.Context, userID, id int64) (core.InstallmentView, error)
	ListInstallments(ctx context.Context, userID int64, status core.InstallmentStatus) ([]core.InstallmentView, error)
	UpdateInstallment(ctx context.Context, userID, id int64, in core.InstallmentInput) (core.InstallmentView, error)
	DeleteInstallment(ctx context.Context, userID, id int64) error
	RecordPayment(ctx context.Context, userID, id int64, in core.PaymentInput) (core.Payment, error)
	ListPayments(ctx context.Context, userID, id int64) ([]core.Payment, error)
}

// Reports is the read side of the API.
type Reports interface {
	DefaultRange() core.DateRange
	LastDays(n int) core.DateRange
	Dashboard(ctx context.Context, userID int64) (core.DashboardSummary, error)
	Summary(ctx context.Context, userID int64, kind core.Kind, r core.DateRange) (core.KindSummary, error)
	Overview(ctx context.Context, userID int64, kind core.Kind, r core.DateRange) (core.Overview, error)
	Insights(ctx context.Context, userID int64, kind core.Kind, r core.DateRange) (core.Insights, error)
	Statement(ctx context.Context, userID int64, r core.DateRange) (export.Statement, error)
}

// Accounts registers users and turns credentials into bearer tokens.
type Accounts interface {
	Register(ctx context.Context, in core.RegisterInput) (core.User, error)
	Login(ctx context.Context, email, password string) (core.LoginResult, error)
	Authenticate(token string) (int64, error)
}

// ReadinessCheck is one named dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Deps struct {
	Ledger   Ledger
	Reports  Reports
	Accounts Accounts
	Checks   []ReadinessCheck
	Logger   *log.Logger
	// RequestsPerMinute bounds each client; zero uses the limiter default.
	RequestsPerMinute int
	// TrustedProxies are CIDRs whose forwarding headers are believed.
	TrustedProxies []string
}

type Server struct {
	http.Server
	ledger   Ledger
	reports  Reports
	accounts Accounts
	checks   []ReadinessCheck
	logger   *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	started          time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	detector := security.NewDetector()
	for _, cidr := range deps.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	s := &Server{
		ledger:           deps.Ledger,
		reports:          deps.Reports,
		accounts:         deps.Accounts,
		checks:           deps.Checks,
		logger:           logger.WithComponent(log.ComponentHTTP),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RequestsPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP),
		started:          time.Now(),
	}

	r := mux.NewRouter()
	r.Use(
		log.Middleware(logger),
		s.traceMiddleware.Middleware,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		detector.Middleware,
		s.rateLimiter.Middleware(detector.ExtractClientIP),
	)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, core.ErrNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	r.HandleFunc("/api/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireAuth)

	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/export/statement.{format:xml|xlsx}", s.handleStatement).Methods(http.MethodGet)

	api.HandleFunc("/installments", s.handleListInstallments).Methods(http.MethodGet)
	api.HandleFunc("/installments", s.handleCreateInstallment).Methods(http.MethodPost)
	api.HandleFunc("/installments/{id:[0-9]+}", s.handleGetInstallment).Methods(http.MethodGet)
	api.HandleFunc("/installments/{id:[0-9]+}", s.handleUpdateInstallment).Methods(http.MethodPut)
	api.HandleFunc("/installments/{id:[0-9]+}", s.handleDeleteInstallment).Methods(http.MethodDelete)
	api.HandleFunc("/installments/{id:[0-9]+}/payments", s.handleListPayments).Methods(http.MethodGet)
	api.HandleFunc("/installments/{id:[0-9]+}/payments", s.handleRecordPayment).Methods(http.MethodPost)

	kind := "/{kind:income|expense}"
	api.HandleFunc(kind+"/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc(kind+"/overview", s.handleOverview).Methods(http.MethodGet)
	api.HandleFunc(kind+"/insights", s.handleInsights).Methods(http.MethodGet)
	api.HandleFunc(kind+"/all", s.handleListTransactions).Methods(http.MethodGet)
	api.HandleFunc(kind, s.handleCreateTransaction).Methods(http.MethodPost)
	api.HandleFunc(kind+"/{id:[0-9]+}", s.handleGetTransaction).Methods(http.MethodGet)
	api.HandleFunc(kind+"/{id:[0-9]+}", s.handleUpdateTransaction).Methods(http.MethodPut)
	api.HandleFunc(kind+"/{id:[0-9]+}", s.handleDeleteTransaction).Methods(http.MethodDelete)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the limiter's cleanup loop and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
