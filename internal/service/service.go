package service

import (
	"github.com/toniautla/settlement/internal/config"
	"github.com/toniautla/settlement/internal/handlers/auth"
	"github.com/toniautla/settlement/internal/handlers/wallet"
	"github.com/toniautla/settlement/internal/handlers/webhook"
	"github.com/toniautla/settlement/internal/pg"
	"github.com/toniautla/settlement/internal/processor"
	"github.com/toniautla/settlement/internal/repo"

	pkgauth "github.com/toniautla/settlement/pkg/auth"

	"github.com/toniautla/settlement/internal/service/authservice"
	"github.com/toniautla/settlement/internal/service/couponservice"
	"github.com/toniautla/settlement/internal/service/orderservice"
	"github.com/toniautla/settlement/internal/service/reconcileservice"
	"github.com/toniautla/settlement/internal/service/walletservice"
)

type Services struct {
	AuthService      auth.Service
	OrderService     *orderservice.Service
	WalletService    wallet.Service
	ReconcileService webhook.Service
}

func New(repo *repo.Repositories, procClient *processor.Client, txManager pg.TXManager, cfg *config.Config) *Services {
	walletService := walletservice.New(repo.WalletRepo, repo.OutboxRepo, procClient, txManager, cfg.Currency)
	couponService := couponservice.New(repo.CouponRepo)
	orderService := orderservice.New(repo.OrderRepo, repo.PaymentRepo, repo.OutboxRepo,
		couponService, walletService, procClient, txManager, cfg.Currency)
	reconcileService := reconcileservice.New(repo.OrderRepo, repo.PaymentRepo, repo.OutboxRepo,
		walletService, txManager)
	authService := authservice.New(repo.UserRepo, walletService, &pkgauth.HashService{}, &pkgauth.JWTService{})

	return &Services{
		AuthService:      authService,
		OrderService:     orderService,
		WalletService:    walletService,
		ReconcileService: reconcileService,
	}
}
