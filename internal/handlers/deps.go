package handlers

import (
	"context"
	"net/http"
	"time"

	"quickpay/internal/ledger"
	"quickpay/internal/services"
	"quickpay/internal/store"
)

type AccountService interface {
	Register(ctx context.Context, input services.RegisterInput) (services.Session, error)
	Login(ctx context.Context, email, password string) (services.Session, error)
	Profile(ctx context.Context, userID string) (store.User, store.Wallet, error)
}

type TransferService interface {
	Send(ctx context.Context, req services.SendRequest) (services.SendResult, error)
	AddFunds(ctx context.Context, userID string, amountMinor int64, note string) (ledger.Result, error)
	ListTransactions(ctx context.Context, userID, direction string, limit, offset int) ([]store.TransactionDetail, error)
	GetTransaction(ctx context.Context, callerID, transactionID string) (store.TransactionDetail, error)
}

type AdjustmentService interface {
	Adjust(ctx context.Context, req services.AdjustRequest) (ledger.Result, error)
}

type AdminService interface {
	UpdateUser(ctx context.Context, adminID, userID string, update store.UserUpdate) (store.User, error)
	DeleteUser(ctx context.Context, adminID, userID string) error
	Stats(ctx context.Context) (services.Stats, error)
}

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (store.User, error)
	GetByID(ctx context.Context, userID string) (store.User, error)
	List(ctx context.Context, limit, offset int) ([]store.User, error)
}

type WalletStore interface {
	GetByUserID(ctx context.Context, userID string) (store.Wallet, error)
	List(ctx context.Context, limit, offset int) ([]store.WalletWithOwner, error)
	Reconcile(ctx context.Context, userID string) ([]store.WalletReconciliation, error)
}

type EntryStore interface {
	ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]store.Entry, error)
}

type TransactionStore interface {
	ListAll(ctx context.Context, limit, offset int) ([]store.TransactionDetail, error)
}

type BeneficiaryStore interface {
	Create(ctx context.Context, userID string, input store.BeneficiaryInput) (store.Beneficiary, error)
	GetByID(ctx context.Context, id int64) (store.Beneficiary, error)
	ListByUser(ctx context.Context, userID string) ([]store.Beneficiary, error)
	Update(ctx context.Context, id int64, input store.BeneficiaryInput) (store.Beneficiary, error)
	Delete(ctx context.Context, id int64) error
}

type AuditStore interface {
	List(ctx context.Context, limit, offset int) ([]store.AuditLog, error)
}

// AccessStore backs the per-request role and status checks.
type AccessStore interface {
	GetAccess(ctx context.Context, userID string) (store.Access, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// BalanceSocket upgrades a request to the live balance stream.
type BalanceSocket interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string)
}

// Settings are the handler-facing slice of config.Config.
type Settings struct {
	JWTSecret          string
	AllowedOrigins     []string
	LoginRatePerSecond float64
	LoginBurst         int
	RequestTimeout     time.Duration
}
