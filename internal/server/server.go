package server

import (
	"context"
	"net/http"
	"time"

	"github.com/hongminglow/bank-ledger-be/internal/accounts"
	"github.com/hongminglow/bank-ledger-be/internal/auth"
	"github.com/hongminglow/bank-ledger-be/internal/config"
	"github.com/hongminglow/bank-ledger-be/internal/events"
	"github.com/hongminglow/bank-ledger-be/internal/http/handlers"
	"github.com/hongminglow/bank-ledger-be/internal/ledger"
	"github.com/hongminglow/bank-ledger-be/internal/middleware"
	"github.com/hongminglow/bank-ledger-be/internal/models"
	"github.com/hongminglow/bank-ledger-be/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner    *http.Server
	accounts *accounts.Service
}

// New wires services, middleware and routes, and returns a ready server.
// A nil publisher disables transaction events.
func New(cfg config.Config, store storage.Store, publisher events.Publisher) *Server {
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	authService := auth.NewService(store, tokenManager, cfg.BcryptCost)
	book := ledger.New(store, publisher)
	accountService := accounts.NewService(store, book, cfg.BcryptCost)

	authed := func(next http.Handler) http.Handler {
		return middleware.Authenticate(authService, cfg.CookieName, next)
	}
	adminOnly := func(next http.Handler) http.Handler {
		return authed(middleware.RequireRole(models.RoleAdmin, next))
	}

	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now(), cfg.DatabaseDriver, store).Register(mux)
	handlers.NewAuthHandler(authService, &cfg).Register(mux, authed)
	handlers.NewAdminHandler(accountService, book).Register(mux, adminOnly)
	handlers.NewUserHandler(accountService, book).Register(mux, authed)

	handler := middleware.RequestID(middleware.Logging(middleware.CORS(cfg.CORSOrigins, mux)))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer, accounts: accountService}
}

// Handler exposes the fully wrapped handler, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.inner.Handler
}

// EnsureAdmin provisions the configured admin when no admin exists yet.
func (s *Server) EnsureAdmin(ctx context.Context, admin config.AdminConfig) (bool, error) {
	return s.accounts.EnsureAdmin(ctx, accounts.AdminSeed{
		Identifier: admin.Identifier,
		Name:       admin.Name,
		Password:   admin.Password,
	})
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
