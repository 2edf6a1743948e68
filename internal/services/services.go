package services

import (
	"context"
	"errors"
	"fmt"

	"quickpay/internal/cache"
	"quickpay/internal/db"
	"quickpay/internal/events"
	"quickpay/internal/ledger"
	"quickpay/internal/metrics"
	"quickpay/internal/money"
	"quickpay/internal/store"
	"quickpay/internal/websocket"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var (
	ErrSenderNotFound         = fmt.Errorf("sender: %w", ledger.ErrNotFound)
	ErrSenderWalletNotFound   = fmt.Errorf("sender wallet: %w", ledger.ErrNotFound)
	ErrReceiverNotFound       = fmt.Errorf("receiver: %w", ledger.ErrNotFound)
	ErrReceiverWalletNotFound = fmt.Errorf("receiver wallet: %w", ledger.ErrNotFound)
	ErrWalletNotFound         = fmt.Errorf("wallet: %w", ledger.ErrNotFound)
	ErrTransactionNotFound    = fmt.Errorf("transaction: %w", ledger.ErrNotFound)
	ErrUserNotFound           = fmt.Errorf("user: %w", ledger.ErrNotFound)
)

// Ledger is the balance-mutating core; *ledger.Ledger satisfies it.
type Ledger interface {
	Transfer(ctx context.Context, tx store.Tx, senderWalletID, receiverWalletID string, amount int64, note string) (ledger.TransferResult, error)
	Credit(ctx context.Context, tx store.Tx, walletID string, amount int64, txType, note string) (ledger.Result, error)
	Debit(ctx context.Context, tx store.Tx, walletID string, amount int64, note string) (ledger.Result, error)
}

type WalletReader interface {
	GetByID(ctx context.Context, walletID string) (store.Wallet, error)
	GetByUserID(ctx context.Context, userID string) (store.Wallet, error)
}

type UserReader interface {
	GetByID(ctx context.Context, userID string) (store.User, error)
}

type AuditLogger interface {
	Log(ctx context.Context, tx store.Execer, entry store.AuditEntry) error
}

type AccessChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.TransactionEvent) error
}

// Limits bound user-initiated amounts, in minor units. Zero disables a bound.
type Limits struct {
	MinMinor int64
	MaxMinor int64
}

func (l Limits) check(amount int64) error {
	if amount <= 0 {
		return ledger.ErrInvalidAmount
	}
	if l.MinMinor > 0 && amount < l.MinMinor {
		return fmt.Errorf("%w: minimum is %s", ledger.ErrInvalidAmount, money.FormatMinor(l.MinMinor))
	}
	if l.MaxMinor > 0 && amount > l.MaxMinor {
		return fmt.Errorf("%w: maximum is %s", ledger.ErrInvalidAmount, money.FormatMinor(l.MaxMinor))
	}
	return nil
}

// runUnit runs fn in a unit of work and repeats it once if the store
// reports a conflict. A second conflict surfaces as ErrStorageConflict.
func runUnit(ctx context.Context, runner db.TxRunner, fn func(*sqlx.Tx) error) error {
	err := runner.WithTx(ctx, fn)
	if err == nil || !db.IsConflict(err) {
		return err
	}
	metrics.RecordStorageConflict()
	err = runner.WithTx(ctx, fn)
	if err == nil || !db.IsConflict(err) {
		return err
	}
	metrics.RecordStorageConflict()
	return fmt.Errorf("%w: %v", ledger.ErrStorageConflict, err)
}

// notifier fans a committed ledger operation out to websocket clients,
// the event channel and metrics, and drops the cached admin stats. Nothing
// here can undo the commit.
type notifier struct {
	hub    BalanceHub
	events EventPublisher
	stats  cache.Cache
	logger *zap.Logger
}

func (n notifier) committed(ctx context.Context, tx store.Transaction, wallets ...store.Wallet) {
	metrics.RecordLedgerOperation(tx.Type, metrics.ResultCompleted)
	metrics.RecordFee(tx.Fee)
	if n.stats != nil {
		if err := n.stats.Delete(ctx, statsCacheKey); err != nil {
			n.logger.Warn("stats cache invalidate failed", zap.Error(err))
		}
	}

	seen := make(map[string]bool, len(wallets))
	currency := ""
	for _, wallet := range wallets {
		currency = wallet.Currency
		if seen[wallet.ID] {
			continue
		}
		seen[wallet.ID] = true
		if n.hub != nil {
			n.hub.BroadcastBalance(wallet.UserID, websocket.BalanceUpdate{
				WalletID:      wallet.ID,
				Balance:       money.FormatMinor(wallet.Balance),
				Currency:      wallet.Currency,
				TransactionID: tx.TransactionID,
				Type:          tx.Type,
			})
		}
	}
	if n.events == nil {
		return
	}
	if err := n.events.Publish(ctx, events.Completed(tx, currency)); err != nil {
		metrics.RecordEventPublishFailure()
		n.logger.Warn("publish transaction event failed",
			zap.String("transaction_id", tx.TransactionID),
			zap.Error(err),
		)
	}
}

func (n notifier) failed(txType string, err error) {
	metrics.RecordLedgerOperation(txType, resultLabel(err))
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return metrics.ResultInsufficientFunds
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrInvalidAction):
		return metrics.ResultInvalid
	case errors.Is(err, ledger.ErrNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, ledger.ErrStorageConflict):
		return metrics.ResultConflict
	default:
		return metrics.ResultError
	}
}

func clampPage(limit, offset, defaultLimit, maxLimit int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
