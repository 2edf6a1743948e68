package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"quickpay/internal/auth"
	"quickpay/internal/db"
	"quickpay/internal/idgen"
	"quickpay/internal/ledger"
	"quickpay/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	walletIDAttempts = 3
	defaultCurrency  = "KES"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
)

type AccountUserStore interface {
	Create(ctx context.Context, tx store.Getter, input store.UserInput) (store.User, error)
	GetByEmail(ctx context.Context, email string) (store.User, error)
	GetByID(ctx context.Context, userID string) (store.User, error)
}

type AccountWalletStore interface {
	Create(ctx context.Context, tx store.Getter, id, userID, currency string) (store.Wallet, error)
	GetByUserID(ctx context.Context, userID string) (store.Wallet, error)
}

type IDGenerator interface {
	Generate(prefix string) (string, error)
}

type AccountService struct {
	txRunner  db.TxRunner
	users     AccountUserStore
	wallets   AccountWalletStore
	audit     AuditLogger
	ids       IDGenerator
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewAccountService(txRunner db.TxRunner, users AccountUserStore, wallets AccountWalletStore, audit AuditLogger, ids IDGenerator, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		txRunner:  txRunner,
		users:     users,
		wallets:   wallets,
		audit:     audit,
		ids:       ids,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     *string
	Country   string
	Address   *string
	City      *string
	ZipCode   *string
}

type Session struct {
	AccessToken string
	User        store.User
	Wallet      store.Wallet
}

// Register creates the user and an empty wallet in one unit of work. The
// role is always user; admins are made through the admin API or the seed.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return Session{}, ErrEmailTaken
	} else if !store.IsNotFound(err) {
		return Session{}, err
	}
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return Session{}, err
	}

	var user store.User
	var wallet store.Wallet
	err = runUnit(ctx, s.txRunner, func(tx *sqlx.Tx) error {
		var err error
		user, err = s.users.Create(ctx, tx, store.UserInput{
			ID:           uuid.NewString(),
			FirstName:    strings.TrimSpace(input.FirstName),
			LastName:     strings.TrimSpace(input.LastName),
			Email:        email,
			PasswordHash: hash,
			Phone:        input.Phone,
			Country:      input.Country,
			Address:      input.Address,
			City:         input.City,
			ZipCode:      input.ZipCode,
			Role:         store.RoleUser,
		})
		if db.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		if err != nil {
			return err
		}
		wallet, err = s.createWallet(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, store.AuditEntry{
			ActorUserID: user.ID,
			Action:      store.AuditRegister,
			EntityType:  store.AuditEntityUser,
			EntityID:    user.ID,
			Data:        map[string]string{"wallet_id": wallet.ID},
		})
	})
	if err != nil {
		return Session{}, err
	}
	token, err := auth.GenerateToken(s.jwtSecret, user.ID, s.tokenTTL)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("wallet_id", wallet.ID))
	return Session{AccessToken: token, User: user, Wallet: wallet}, nil
}

func (s *AccountService) createWallet(ctx context.Context, tx store.Getter, userID string) (store.Wallet, error) {
	for attempt := 0; attempt < walletIDAttempts; attempt++ {
		id, err := s.ids.Generate(idgen.WalletPrefix)
		if err != nil {
			return store.Wallet{}, err
		}
		wallet, err := s.wallets.Create(ctx, tx, id, userID, defaultCurrency)
		if errors.Is(err, store.ErrDuplicateID) {
			continue
		}
		return wallet, err
	}
	return store.Wallet{}, ledger.ErrIDCollision
}

func (s *AccountService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if store.IsNotFound(err) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	if user.Status != store.UserStatusActive {
		return Session{}, ErrAccountInactive
	}
	wallet, err := s.wallets.GetByUserID(ctx, user.ID)
	if err != nil {
		return Session{}, notFoundAs(err, ErrWalletNotFound)
	}
	token, err := auth.GenerateToken(s.jwtSecret, user.ID, s.tokenTTL)
	if err != nil {
		return Session{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.audit.Log(ctx, tx, store.AuditEntry{
			ActorUserID: user.ID,
			Action:      store.AuditLogin,
			EntityType:  store.AuditEntityUser,
			EntityID:    user.ID,
		})
	})
	if err != nil {
		s.logger.Warn("login audit failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	return Session{AccessToken: token, User: user, Wallet: wallet}, nil
}

// Profile loads the caller and their wallet.
func (s *AccountService) Profile(ctx context.Context, userID string) (store.User, store.Wallet, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return store.User{}, store.Wallet{}, notFoundAs(err, ErrUserNotFound)
	}
	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return store.User{}, store.Wallet{}, notFoundAs(err, ErrWalletNotFound)
	}
	return user, wallet, nil
}
