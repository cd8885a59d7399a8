// Package api exposes the HTTP surface: auth, groups, expenses,
// payments, health, and metrics.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splitledger/splitledger/internal/auth"
	"github.com/splitledger/splitledger/internal/middleware"
	"github.com/splitledger/splitledger/internal/service"
)

// Server wires the services to their routes.
type Server struct {
	router   chi.Router
	auth     *service.AuthService
	groups   *service.GroupService
	expenses *service.ExpenseService
	payments *service.PaymentService
}

// NewServer builds the router. The webhook route is the only
// unauthenticated mutation: the provider calls it, not a user.
func NewServer(
	authService *service.AuthService,
	groupService *service.GroupService,
	expenseService *service.ExpenseService,
	paymentService *service.PaymentService,
	jwtManager *auth.JWTManager,
	blacklist auth.TokenBlacklist,
) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		auth:     authService,
		groups:   groupService,
		expenses: expenseService,
		payments: paymentService,
	}

	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.LogRequests)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(30 * time.Second))

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/payments/webhook", s.handleWebhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(jwtManager, blacklist))

			r.Post("/auth/logout", s.handleLogout)

			r.Post("/groups", s.handleCreateGroup)
			r.Get("/groups/{groupID}", s.handleGetGroup)
			r.Post("/groups/{groupID}/members", s.handleAddMembers)
			r.Get("/groups/{groupID}/expenses", s.handleListExpenses)

			r.Post("/expenses", s.handleAddExpense)
			r.Delete("/expenses/{expenseID}", s.handleDeleteExpense)

			r.Post("/payments/intents", s.handleCreateIntent)
			r.Post("/payments/expenses/{expenseID}/intents", s.handleCreateExpenseIntents)
			r.Post("/payments/confirm", s.handleConfirm)
			r.Get("/payments/balance", s.handleBalance)
			r.Get("/payments/history", s.handleHistory)
		})
	})

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
