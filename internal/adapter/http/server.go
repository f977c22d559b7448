package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/finledger/ledger/internal/logger"
)

// Server represents the HTTP server
type Server struct {
	addr   string
	logger logger.Logger
	server *http.Server
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RouterConfig holds the dependencies of the HTTP surface. Limiter may be nil.
type RouterConfig struct {
	Transactions TransactionUseCase
	Audit        AuditUseCase
	Verifier     TokenVerifier
	Limiter      RateLimiter
	CORSOrigins  []string
	Logger       logger.Logger
}

// NewRouter wires the handlers behind the middleware chain. Everything under /api/v1 requires
// a bearer token. CORS wraps the router so preflight requests never reach route matching.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	router := mux.NewRouter()

	router.Use(correlationIDMiddleware)
	router.Use(loggingMiddleware(log))
	router.Use(recoveryMiddleware(log))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, http.StatusOK, "ok", nil)
	}).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(NewAuthMiddleware(cfg.Verifier).RequireAuth)
	if cfg.Limiter != nil {
		api.Use(writeRateLimitMiddleware(cfg.Limiter, log))
	}

	NewTransactionHandler(cfg.Transactions).RegisterRoutes(api)
	NewAuditHandler(cfg.Audit).RegisterRoutes(api)

	return corsMiddleware(cfg.CORSOrigins)(router)
}

// NewServer creates a new HTTP server
func NewServer(config ServerConfig, handler http.Handler, log logger.Logger) *Server {
	addr := config.Host + ":" + config.Port
	return &Server{
		addr:   addr,
		logger: log,
		server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// Start starts the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{"addr": s.addr})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}
