// Command seed creates the first admin account with an opening balance.
// It does nothing when an admin already exists, and finishes the job when
// an earlier run registered the account but failed to promote it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"quickpay/internal/config"
	"quickpay/internal/db"
	"quickpay/internal/fee"
	"quickpay/internal/idgen"
	"quickpay/internal/ledger"
	"quickpay/internal/logger"
	"quickpay/internal/money"
	"quickpay/internal/services"
	"quickpay/internal/store"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const openingNote = "Opening balance"

func main() {
	email := flag.String("email", "admin@example.com", "admin email")
	password := flag.String("password", "Admin12345", "admin password")
	opening := flag.String("balance", "10000.00", "opening balance")
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	openingMinor, err := money.ParseMinor(*opening)
	if err != nil || openingMinor < 0 {
		log.Fatal("invalid opening balance", zap.String("balance", *opening))
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admins := store.NewAdminStore(database)
	exists, err := admins.HasAnyAdmin(ctx)
	if err != nil {
		log.Fatal("failed to check admins", zap.Error(err))
	}
	if exists {
		log.Info("admin already present, nothing to do")
		return
	}

	users := store.NewUserStore(database)
	wallets := store.NewWalletStore(database)
	txRunner := db.NewTxRunner(database, cfg.LockTimeout)
	policy, err := fee.NewRatePolicy(cfg.FeeRate, cfg.FeeMinMinor, cfg.FeeMaxMinor)
	if err != nil {
		log.Fatal("invalid fee configuration", zap.Error(err))
	}

	s := seeder{
		txRunner: txRunner,
		accounts: services.NewAccountService(txRunner, users, wallets, store.NewAuditStore(database), idgen.New(idgen.WalletCodeLength), cfg.JWTSecret, cfg.TokenTTL, log),
		users:    users,
		wallets:  wallets,
		ledger:   ledger.New(wallets, store.NewTransactionStore(database), store.NewEntryStore(database), policy, idgen.New(idgen.TransactionCodeLength)),
		now:      func() time.Time { return time.Now().UTC() },
		logger:   log,
	}
	user, wallet, err := s.run(ctx, services.RegisterInput{
		FirstName: "System",
		LastName:  "Admin",
		Email:     *email,
		Password:  *password,
		Country:   "Kenya",
	}, openingMinor)
	if err != nil {
		log.Fatal("failed to seed admin", zap.Error(err))
	}
	log.Info("seeded admin",
		zap.String("user_id", user.ID),
		zap.String("wallet_id", wallet.ID),
		zap.String("balance", money.FormatMinor(wallet.Balance)),
	)
}

type registrar interface {
	Register(ctx context.Context, input services.RegisterInput) (services.Session, error)
}

type userDirectory interface {
	GetByEmail(ctx context.Context, email string) (store.User, error)
	Update(ctx context.Context, tx store.Getter, userID string, update store.UserUpdate, at time.Time) (store.User, error)
}

type walletFinder interface {
	GetByUserID(ctx context.Context, userID string) (store.Wallet, error)
}

type crediter interface {
	Credit(ctx context.Context, tx store.Tx, walletID string, amount int64, txType, note string) (ledger.Result, error)
}

type seeder struct {
	txRunner db.TxRunner
	accounts registrar
	users    userDirectory
	wallets  walletFinder
	ledger   crediter
	now      func() time.Time
	logger   *zap.Logger
}

// run promotes the account and credits its opening balance in one unit of
// work, so a failure leaves a plain user that the next run picks up again.
func (s seeder) run(ctx context.Context, input services.RegisterInput, openingMinor int64) (store.User, store.Wallet, error) {
	user, wallet, err := s.account(ctx, input)
	if err != nil {
		return store.User{}, store.Wallet{}, err
	}

	role := store.RoleAdmin
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		promoted, err := s.users.Update(ctx, tx, user.ID, store.UserUpdate{Role: &role}, s.now())
		if err != nil {
			return fmt.Errorf("promote %s: %w", user.ID, err)
		}
		user = promoted
		if openingMinor == 0 {
			return nil
		}
		result, err := s.ledger.Credit(ctx, tx, wallet.ID, openingMinor, store.TypeAddFunds, openingNote)
		if err != nil {
			return fmt.Errorf("credit opening balance: %w", err)
		}
		wallet = result.Wallet
		return nil
	})
	if err != nil {
		return store.User{}, store.Wallet{}, err
	}
	return user, wallet, nil
}

func (s seeder) account(ctx context.Context, input services.RegisterInput) (store.User, store.Wallet, error) {
	session, err := s.accounts.Register(ctx, input)
	if err == nil {
		return session.User, session.Wallet, nil
	}
	if !errors.Is(err, services.ErrEmailTaken) {
		return store.User{}, store.Wallet{}, fmt.Errorf("register admin: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return store.User{}, store.Wallet{}, fmt.Errorf("load %s: %w", email, err)
	}
	wallet, err := s.wallets.GetByUserID(ctx, user.ID)
	if err != nil {
		return store.User{}, store.Wallet{}, fmt.Errorf("wallet for %s: %w", email, err)
	}
	s.logger.Info("reusing registered account", zap.String("user_id", user.ID))
	return user, wallet, nil
}
