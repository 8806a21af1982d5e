package repo

import (
	"github.com/toniautla/settlement/internal/pg"
	couponrepo "github.com/toniautla/settlement/internal/repo/coupon-repo"
	orderrepo "github.com/toniautla/settlement/internal/repo/order-repo"
	outboxrepo "github.com/toniautla/settlement/internal/repo/outbox-repo"
	paymentrepo "github.com/toniautla/settlement/internal/repo/payment-repo"
	userrepo "github.com/toniautla/settlement/internal/repo/user-repo"
	walletrepo "github.com/toniautla/settlement/internal/repo/wallet-repo"
	"github.com/toniautla/settlement/internal/service/authservice"
	"github.com/toniautla/settlement/internal/service/couponservice"
	"github.com/toniautla/settlement/internal/service/orderservice"
	"github.com/toniautla/settlement/internal/service/walletservice"
)

type Repositories struct {
	UserRepo    authservice.Repo
	OrderRepo   orderservice.OrderRepo
	WalletRepo  walletservice.WalletRepo
	CouponRepo  couponservice.CouponRepo
	PaymentRepo *paymentrepo.Repository
	OutboxRepo  *outboxrepo.Repository
}

func New(conn pg.Database, txManager pg.TXManager) *Repositories {
	userRepo := userrepo.New(conn)
	orderRepo := orderrepo.New(conn, txManager)
	walletRepo := walletrepo.New(conn, txManager)
	couponRepo := couponrepo.New(conn)
	paymentRepo := paymentrepo.New(conn)
	outboxRepo := outboxrepo.New(conn)

	return &Repositories{
		UserRepo:    userRepo,
		OrderRepo:   orderRepo,
		WalletRepo:  walletRepo,
		CouponRepo:  couponRepo,
		PaymentRepo: paymentRepo,
		OutboxRepo:  outboxRepo,
	}
}
