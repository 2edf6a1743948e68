package services

import (
	"context"
	"fmt"

	"quickpay/internal/cache"
	"quickpay/internal/db"
	"quickpay/internal/ledger"
	"quickpay/internal/money"
	"quickpay/internal/store"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	ActionAdd    = "add"
	ActionDeduct = "deduct"
)

type AdjustmentService struct {
	txRunner db.TxRunner
	ledger   Ledger
	audit    AuditLogger
	logger   *zap.Logger
	notify   notifier
}

func NewAdjustmentService(txRunner db.TxRunner, l Ledger, audit AuditLogger, hub BalanceHub, publisher EventPublisher, statsCache cache.Cache, logger *zap.Logger) *AdjustmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdjustmentService{
		txRunner: txRunner,
		ledger:   l,
		audit:    audit,
		logger:   logger,
		notify:   notifier{hub: hub, events: publisher, stats: statsCache, logger: logger},
	}
}

type AdjustRequest struct {
	AdminID     string
	WalletID    string
	Action      string
	AmountMinor int64
	Note        string
}

// Adjust credits or debits a wallet on behalf of an admin. Both directions
// leave an adjustment transaction and an audit row.
func (s *AdjustmentService) Adjust(ctx context.Context, req AdjustRequest) (ledger.Result, error) {
	result, err := s.adjust(ctx, req)
	if err != nil {
		s.notify.failed(store.TypeAdjustment, err)
		return ledger.Result{}, err
	}
	return result, nil
}

func (s *AdjustmentService) adjust(ctx context.Context, req AdjustRequest) (ledger.Result, error) {
	if req.AmountMinor <= 0 {
		return ledger.Result{}, ledger.ErrInvalidAmount
	}
	if req.Action != ActionAdd && req.Action != ActionDeduct {
		return ledger.Result{}, fmt.Errorf("%w: %q", ledger.ErrInvalidAction, req.Action)
	}
	note := req.Note
	if note == "" {
		note = "Admin adjustment (" + req.Action + ")"
	}

	var result ledger.Result
	err := runUnit(ctx, s.txRunner, func(tx *sqlx.Tx) error {
		var err error
		if req.Action == ActionAdd {
			result, err = s.ledger.Credit(ctx, tx, req.WalletID, req.AmountMinor, store.TypeAdjustment, note)
		} else {
			result, err = s.ledger.Debit(ctx, tx, req.WalletID, req.AmountMinor, note)
		}
		if err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, store.AuditEntry{
			ActorUserID: req.AdminID,
			Action:      store.AuditAdjustment,
			EntityType:  store.AuditEntityWallet,
			EntityID:    req.WalletID,
			Data: map[string]string{
				"action":         req.Action,
				"amount":         money.FormatMinor(req.AmountMinor),
				"transaction_id": result.Transaction.TransactionID,
				"balance_after":  money.FormatMinor(result.Wallet.Balance),
			},
		})
	})
	if err != nil {
		return ledger.Result{}, err
	}
	s.notify.committed(ctx, result.Transaction, result.Wallet)
	s.logger.Info("wallet adjusted",
		zap.String("admin_id", req.AdminID),
		zap.String("wallet_id", req.WalletID),
		zap.String("action", req.Action),
		zap.Int64("amount_minor", req.AmountMinor),
	)
	return result, nil
}
