package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/toniautla/settlement/docs"
	"github.com/toniautla/settlement/internal/config"
	authhandlers "github.com/toniautla/settlement/internal/handlers/auth"
	checkouthandlers "github.com/toniautla/settlement/internal/handlers/checkout"
	ordershandlers "github.com/toniautla/settlement/internal/handlers/orders"
	wallethandlers "github.com/toniautla/settlement/internal/handlers/wallet"
	webhookhandlers "github.com/toniautla/settlement/internal/handlers/webhook"
	"github.com/toniautla/settlement/internal/service"
	"github.com/toniautla/settlement/pkg/auth"
)

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
}

type CheckoutHandler interface {
	Quote(w http.ResponseWriter, r *http.Request)
	Commit(w http.ResponseWriter, r *http.Request)
}

type OrderHandler interface {
	GetOrders(w http.ResponseWriter, r *http.Request)
	GetOrder(w http.ResponseWriter, r *http.Request)
	UpdateStatus(w http.ResponseWriter, r *http.Request)
}

type WalletHandler interface {
	GetWallet(w http.ResponseWriter, r *http.Request)
	GetTransactions(w http.ResponseWriter, r *http.Request)
	Topup(w http.ResponseWriter, r *http.Request)
}

type WebhookHandler interface {
	HandleNotification(w http.ResponseWriter, r *http.Request)
}

type Handlers struct {
	AuthHandler     AuthHandler
	CheckoutHandler CheckoutHandler
	OrderHandler    OrderHandler
	WalletHandler   WalletHandler
	WebhookHandler  WebhookHandler

	adminAPIKey string
}

func New(s *service.Services, cfg *config.Config) *Handlers {
	return &Handlers{
		AuthHandler:     authhandlers.New(s.AuthService),
		CheckoutHandler: checkouthandlers.New(s.OrderService),
		OrderHandler:    ordershandlers.New(s.OrderService),
		WalletHandler:   wallethandlers.New(s.WalletService),
		WebhookHandler:  webhookhandlers.New(s.ReconcileService, cfg.WebhookSecret),
		adminAPIKey:     cfg.AdminAPIKey,
	}
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))
	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.AuthHandler.Register)
		r.Post("/login", h.AuthHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware)
			r.Route("/checkout", func(r chi.Router) {
				r.Post("/", h.CheckoutHandler.Commit)
				r.Post("/quote", h.CheckoutHandler.Quote)
			})
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.OrderHandler.GetOrders)
				r.Get("/{id}", h.OrderHandler.GetOrder)
			})
			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", h.WalletHandler.GetWallet)
				r.Get("/transactions", h.WalletHandler.GetTransactions)
				r.Post("/topup", h.WalletHandler.Topup)
			})
		})
	})
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(auth.AdminMiddleware(h.adminAPIKey))
		r.Patch("/orders/{id}/status", h.OrderHandler.UpdateStatus)
	})
	r.Post("/api/webhooks/payment", h.WebhookHandler.HandleNotification)

	return r
}
