package services

import (
	"context"

	"quickpay/internal/cache"
	"quickpay/internal/db"
	"quickpay/internal/ledger"
	"quickpay/internal/money"
	"quickpay/internal/store"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	defaultTransactionPage = 50
	maxTransactionPage     = 100

	defaultAddFundsNote = "Added funds to wallet"
)

type TransactionReader interface {
	GetByTransactionID(ctx context.Context, transactionID string) (store.TransactionDetail, error)
	ListByUser(ctx context.Context, userID, direction string, limit, offset int) ([]store.TransactionDetail, error)
}

type TransferDeps struct {
	TxRunner     db.TxRunner
	Ledger       Ledger
	Wallets      WalletReader
	Users        UserReader
	Transactions TransactionReader
	Access       AccessChecker
	Audit        AuditLogger
	Hub          BalanceHub
	Events       EventPublisher
	StatsCache   cache.Cache
	Logger       *zap.Logger
	Limits       Limits
}

// TransferService runs user-initiated money movement: peer transfers and
// wallet top-ups, plus the reads that go with them.
type TransferService struct {
	txRunner     db.TxRunner
	ledger       Ledger
	wallets      WalletReader
	users        UserReader
	transactions TransactionReader
	access       AccessChecker
	audit        AuditLogger
	limits       Limits
	logger       *zap.Logger
	notify       notifier
}

func NewTransferService(deps TransferDeps) *TransferService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransferService{
		txRunner:     deps.TxRunner,
		ledger:       deps.Ledger,
		wallets:      deps.Wallets,
		users:        deps.Users,
		transactions: deps.Transactions,
		access:       deps.Access,
		audit:        deps.Audit,
		limits:       deps.Limits,
		logger:       logger,
		notify:       notifier{hub: deps.Hub, events: deps.Events, stats: deps.StatsCache, logger: logger},
	}
}

type SendRequest struct {
	SenderID    string
	ReceiverID  string
	AmountMinor int64
	Note        string
}

type SendResult struct {
	Transaction store.TransactionDetail
	Wallet      store.Wallet
}

func (s *TransferService) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	result, err := s.send(ctx, req)
	if err != nil {
		s.notify.failed(store.TypeTransfer, err)
		return SendResult{}, err
	}
	return result, nil
}

func (s *TransferService) send(ctx context.Context, req SendRequest) (SendResult, error) {
	if err := s.limits.check(req.AmountMinor); err != nil {
		return SendResult{}, err
	}
	sender, err := s.users.GetByID(ctx, req.SenderID)
	if err != nil {
		return SendResult{}, notFoundAs(err, ErrSenderNotFound)
	}
	senderWallet, err := s.wallets.GetByUserID(ctx, req.SenderID)
	if err != nil {
		return SendResult{}, notFoundAs(err, ErrSenderWalletNotFound)
	}
	receiver, err := s.users.GetByID(ctx, req.ReceiverID)
	if err != nil {
		return SendResult{}, notFoundAs(err, ErrReceiverNotFound)
	}
	receiverWallet, err := s.wallets.GetByUserID(ctx, req.ReceiverID)
	if err != nil {
		return SendResult{}, notFoundAs(err, ErrReceiverWalletNotFound)
	}

	var result ledger.TransferResult
	err = runUnit(ctx, s.txRunner, func(tx *sqlx.Tx) error {
		var err error
		result, err = s.ledger.Transfer(ctx, tx, senderWallet.ID, receiverWallet.ID, req.AmountMinor, req.Note)
		if err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, store.AuditEntry{
			ActorUserID: req.SenderID,
			Action:      store.AuditTransfer,
			EntityType:  store.AuditEntityTransaction,
			EntityID:    result.Transaction.TransactionID,
			Data: map[string]string{
				"receiver_id": req.ReceiverID,
				"amount":      money.FormatMinor(result.Transaction.Amount),
				"fee":         money.FormatMinor(result.Transaction.Fee),
			},
		})
	})
	if err != nil {
		return SendResult{}, err
	}

	s.notify.committed(ctx, result.Transaction, result.Sender, result.Receiver)
	s.logger.Info("transfer completed",
		zap.String("transaction_id", result.Transaction.TransactionID),
		zap.String("sender_wallet", result.Sender.ID),
		zap.String("receiver_wallet", result.Receiver.ID),
		zap.Int64("amount_minor", result.Transaction.Amount),
		zap.Int64("fee_minor", result.Transaction.Fee),
	)

	senderName, receiverName := sender.FullName(), receiver.FullName()
	return SendResult{
		Transaction: store.TransactionDetail{
			Transaction:  result.Transaction,
			SenderName:   &senderName,
			ReceiverName: &receiverName,
		},
		Wallet: result.Sender,
	}, nil
}

func (s *TransferService) AddFunds(ctx context.Context, userID string, amountMinor int64, note string) (ledger.Result, error) {
	result, err := s.addFunds(ctx, userID, amountMinor, note)
	if err != nil {
		s.notify.failed(store.TypeAddFunds, err)
		return ledger.Result{}, err
	}
	return result, nil
}

func (s *TransferService) addFunds(ctx context.Context, userID string, amountMinor int64, note string) (ledger.Result, error) {
	if err := s.limits.check(amountMinor); err != nil {
		return ledger.Result{}, err
	}
	if note == "" {
		note = defaultAddFundsNote
	}
	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return ledger.Result{}, notFoundAs(err, ErrWalletNotFound)
	}

	var result ledger.Result
	err = runUnit(ctx, s.txRunner, func(tx *sqlx.Tx) error {
		var err error
		result, err = s.ledger.Credit(ctx, tx, wallet.ID, amountMinor, store.TypeAddFunds, note)
		if err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, store.AuditEntry{
			ActorUserID: userID,
			Action:      store.AuditAddFunds,
			EntityType:  store.AuditEntityTransaction,
			EntityID:    result.Transaction.TransactionID,
			Data:        map[string]string{"amount": money.FormatMinor(amountMinor)},
		})
	})
	if err != nil {
		return ledger.Result{}, err
	}
	s.notify.committed(ctx, result.Transaction, result.Wallet)
	return result, nil
}

// ListTransactions pages through the caller's history, newest first.
func (s *TransferService) ListTransactions(ctx context.Context, userID, direction string, limit, offset int) ([]store.TransactionDetail, error) {
	limit, offset = clampPage(limit, offset, defaultTransactionPage, maxTransactionPage)
	rows, err := s.transactions.ListByUser(ctx, userID, direction, limit, offset)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []store.TransactionDetail{}
	}
	return rows, nil
}

// GetTransaction returns a record visible to callerID: either party, or any admin.
func (s *TransferService) GetTransaction(ctx context.Context, callerID, transactionID string) (store.TransactionDetail, error) {
	row, err := s.transactions.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return store.TransactionDetail{}, notFoundAs(err, ErrTransactionNotFound)
	}
	if row.SenderID == callerID || row.ReceiverID == callerID {
		return row, nil
	}
	isAdmin, err := s.access.IsAdmin(ctx, callerID)
	if err != nil {
		return store.TransactionDetail{}, err
	}
	if !isAdmin {
		return store.TransactionDetail{}, ledger.ErrUnauthorized
	}
	return row, nil
}

func notFoundAs(err, target error) error {
	if store.IsNotFound(err) {
		return target
	}
	return err
}
