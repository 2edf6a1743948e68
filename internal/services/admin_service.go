package services

import (
	"context"
	"errors"
	"time"

	"quickpay/internal/cache"
	"quickpay/internal/db"
	"quickpay/internal/money"
	"quickpay/internal/store"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const statsCacheKey = "admin:stats"

var (
	ErrUserHasTransactions = errors.New("user has transaction history")
	ErrCannotDeleteSelf    = errors.New("admins cannot delete themselves")
)

type AdminUserStore interface {
	GetByID(ctx context.Context, userID string) (store.User, error)
	Update(ctx context.Context, tx store.Getter, userID string, update store.UserUpdate, at time.Time) (store.User, error)
	Delete(ctx context.Context, tx store.Execer, userID string) (bool, error)
}

type AdminQueries interface {
	HasTransactions(ctx context.Context, userID string) (bool, error)
	CountUsers(ctx context.Context) (store.UserCounts, error)
	CountTransactions(ctx context.Context) (int64, error)
	TotalRevenue(ctx context.Context) (int64, error)
	TotalWalletBalance(ctx context.Context) (int64, error)
}

type AdminService struct {
	txRunner db.TxRunner
	users    AdminUserStore
	queries  AdminQueries
	audit    AuditLogger
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewAdminService(txRunner db.TxRunner, users AdminUserStore, queries AdminQueries, audit AuditLogger, statsCache cache.Cache, cacheTTL time.Duration, logger *zap.Logger) *AdminService {
	if statsCache == nil {
		statsCache = cache.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		txRunner: txRunner,
		users:    users,
		queries:  queries,
		audit:    audit,
		cache:    statsCache,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *AdminService) UpdateUser(ctx context.Context, adminID, userID string, update store.UserUpdate) (store.User, error) {
	var user store.User
	err := runUnit(ctx, s.txRunner, func(tx *sqlx.Tx) error {
		var err error
		user, err = s.users.Update(ctx, tx, userID, update, s.now())
		if err != nil {
			return notFoundAs(err, ErrUserNotFound)
		}
		return s.audit.Log(ctx, tx, store.AuditEntry{
			ActorUserID: adminID,
			Action:      store.AuditUserUpdated,
			EntityType:  store.AuditEntityUser,
			EntityID:    userID,
			Data:        update,
		})
	})
	if err != nil {
		return store.User{}, err
	}
	s.invalidateStats(ctx)
	return user, nil
}

// DeleteUser removes a user with no transaction history. Records are
// immutable, so a user who has ever sent or received money is kept.
func (s *AdminService) DeleteUser(ctx context.Context, adminID, userID string) error {
	if adminID == userID {
		return ErrCannotDeleteSelf
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return notFoundAs(err, ErrUserNotFound)
	}
	hasHistory, err := s.queries.HasTransactions(ctx, userID)
	if err != nil {
		return err
	}
	if hasHistory {
		return ErrUserHasTransactions
	}
	err = runUnit(ctx, s.txRunner, func(tx *sqlx.Tx) error {
		deleted, err := s.users.Delete(ctx, tx, userID)
		if db.IsForeignKeyViolation(err) {
			return ErrUserHasTransactions
		}
		if err != nil {
			return err
		}
		if !deleted {
			return ErrUserNotFound
		}
		return s.audit.Log(ctx, tx, store.AuditEntry{
			ActorUserID: adminID,
			Action:      store.AuditUserDeleted,
			EntityType:  store.AuditEntityUser,
			EntityID:    userID,
		})
	})
	if err != nil {
		return err
	}
	s.invalidateStats(ctx)
	return nil
}

type Stats struct {
	TotalUsers         int64  `json:"total_users"`
	ActiveUsers        int64  `json:"active_users"`
	TotalTransactions  int64  `json:"total_transactions"`
	TotalRevenue       string `json:"total_revenue"`
	TotalWalletBalance string `json:"total_wallet_balance"`
}

// Stats serves the dashboard numbers from cache when possible. Cache
// failures are logged and fall through to the database.
func (s *AdminService) Stats(ctx context.Context) (Stats, error) {
	var cached Stats
	hit, err := s.cache.GetJSON(ctx, statsCacheKey, &cached)
	if err != nil {
		s.logger.Warn("stats cache read failed", zap.Error(err))
	}
	if hit {
		return cached, nil
	}

	var (
		users    store.UserCounts
		txCount  int64
		revenue  int64
		balances int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = s.queries.CountUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		txCount, err = s.queries.CountTransactions(gctx)
		return err
	})
	g.Go(func() (err error) {
		revenue, err = s.queries.TotalRevenue(gctx)
		return err
	})
	g.Go(func() (err error) {
		balances, err = s.queries.TotalWalletBalance(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	stats := Stats{
		TotalUsers:         users.Total,
		ActiveUsers:        users.Active,
		TotalTransactions:  txCount,
		TotalRevenue:       money.FormatMinor(revenue),
		TotalWalletBalance: money.FormatMinor(balances),
	}
	if s.cacheTTL > 0 {
		if err := s.cache.SetJSON(ctx, statsCacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

func (s *AdminService) invalidateStats(ctx context.Context) {
	if err := s.cache.Delete(ctx, statsCacheKey); err != nil {
		s.logger.Warn("stats cache invalidate failed", zap.Error(err))
	}
}
