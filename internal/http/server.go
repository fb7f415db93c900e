package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"moneymonitor/internal/core"
	"moneymonitor/internal/log"
	"moneymonitor/internal/middleware/security"
	"moneymonitor/internal/middleware/trace"
	"moneymonitor/internal/services"
	"moneymonitor/internal/store"
)

const (
	serviceName    = "Money Monitor API"
	serviceVersion = "1.0.0"
)

// Options carries the collaborators of the API server.
type Options struct {
	Expenses  *services.ExpenseService
	Reports   *services.ReportService
	Merchants *services.MerchantDirectory
	// Pinger backs /ready. Nil reports the service as not ready.
	Pinger store.Pinger
	// StoreTimeout bounds the store work of each request; zero disables it.
	StoreTimeout time.Duration
	Logger       *log.Logger
}

// Server is the JSON API over the expense services.
type Server struct {
	http.Server

	expenses     *services.ExpenseService
	reports      *services.ReportService
	merchants    *services.MerchantDirectory
	pinger       store.Pinger
	storeTimeout time.Duration
	logger       *log.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		expenses:     opts.Expenses,
		reports:      opts.Reports,
		merchants:    opts.Merchants,
		pinger:       opts.Pinger,
		storeTimeout: opts.StoreTimeout,
		logger:       logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)

	mux.HandleFunc("POST /expenses/add", s.handleAddExpense)
	mux.HandleFunc("GET /expenses/{userId}", s.handleListExpenses)
	mux.HandleFunc("GET /expenses/totals/{userId}", s.handleTotals)

	mux.HandleFunc("POST /ai/merchant-spend", s.handleMerchantSpend)
	mux.HandleFunc("POST /ai/category-summary", s.handleCategorySummary)
	mux.HandleFunc("POST /ai/monthly-trend", s.handleMonthlyTrend)

	mux.HandleFunc("POST /merchants/save", s.handleSaveMerchant)
	mux.HandleFunc("GET /merchants/lookup/{userId}/{merchant}", s.handleLookupMerchant)

	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = security.NewCORSMiddleware(security.DefaultCORSConfig()).Middleware(handler)
	handler = trace.NewMiddleware(logger, extractClientIP).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().
		Set("service", serviceName).
		Set("version", serviceVersion).
		Set("endpoints", map[string]any{
			"health": "GET /health",
			"ready":  "GET /ready",
			"expenses": map[string]string{
				"add":    "POST /expenses/add",
				"list":   "GET /expenses/{userId}",
				"totals": "GET /expenses/totals/{userId}",
			},
			"ai": map[string]string{
				"merchantSpend":   "POST /ai/merchant-spend",
				"categorySummary": "POST /ai/category-summary",
				"monthlyTrend":    "POST /ai/monthly-trend",
			},
			"merchants": map[string]string{
				"save":   "POST /merchants/save",
				"lookup": "GET /merchants/lookup/{userId}/{merchant}",
			},
		}).
		Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().
		Set("status", "healthy").
		Set("service", serviceName).
		Set("version", serviceVersion).
		Write(w)
}

// handleReady checks that the document store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger == nil {
		ServiceUnavailableError("store not configured").Set("status", "not_ready").Write(w)
		return
	}

	ctx, cancel := s.withStoreTimeout(r.Context())
	defer cancel()

	if err := s.pinger.Ping(ctx); err != nil {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(ctx, "Readiness check failed", err, log.ComponentStorage, "ping", nil)
		ServiceUnavailableError(err.Error()).Set("status", "not_ready").Write(w)
		return
	}
	NewJSONResponse().Set("status", "ready").Write(w)
}

// clientErrors are caller mistakes; they are answered without an error log.
var clientErrors = []error{
	errMissingParam,
	errInvalidBody,
	errEmptyBody,
	services.ErrInvalidExpense,
	store.ErrUnsupportedField,
	core.ErrInvalidAmount,
	core.ErrEmptyItem,
	core.ErrInvalidType,
	core.ErrInvalidSource,
	core.ErrInvalidDate,
	core.ErrMissingUser,
	core.ErrEmptyMerchant,
	core.ErrEmptyCategory,
}

func isClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// fail answers err with a 400 envelope. Store and other unexpected
// failures are logged first.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, component, op string, fields log.LogFields) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	if isClientError(err) {
		logger.WithComponent(component).DebugContext(ctx, "Rejected request",
			log.FieldOperation, op, log.FieldError, err.Error())
	} else {
		log.NewStructuredLogger(logger).LogError(ctx, "Request failed", err, component, op, fields)
	}
	BadRequestError(err.Error()).Write(w)
}
