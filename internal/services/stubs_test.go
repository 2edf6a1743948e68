package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"quickpay/internal/events"
	"quickpay/internal/ledger"
	"quickpay/internal/store"
	"quickpay/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

// conflictRunner fails the first conflicts calls with a lock timeout, then
// behaves like fakeTxRunner.
type conflictRunner struct {
	conflicts int
	calls     int
}

func (c *conflictRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	c.calls++
	if c.calls <= c.conflicts {
		return &pq.Error{Code: "55P03", Message: "lock not available"}
	}
	return fn(nil)
}

type stubLedger struct {
	transferFn func(ctx context.Context, senderWalletID, receiverWalletID string, amount int64, note string) (ledger.TransferResult, error)
	creditFn   func(ctx context.Context, walletID string, amount int64, txType, note string) (ledger.Result, error)
	debitFn    func(ctx context.Context, walletID string, amount int64, note string) (ledger.Result, error)
}

func (s stubLedger) Transfer(ctx context.Context, _ store.Tx, senderWalletID, receiverWalletID string, amount int64, note string) (ledger.TransferResult, error) {
	return s.transferFn(ctx, senderWalletID, receiverWalletID, amount, note)
}

func (s stubLedger) Credit(ctx context.Context, _ store.Tx, walletID string, amount int64, txType, note string) (ledger.Result, error) {
	return s.creditFn(ctx, walletID, amount, txType, note)
}

func (s stubLedger) Debit(ctx context.Context, _ store.Tx, walletID string, amount int64, note string) (ledger.Result, error) {
	return s.debitFn(ctx, walletID, amount, note)
}

// stubWallets serves wallets keyed by owner.
type stubWallets struct {
	byUser map[string]store.Wallet
}

func (s stubWallets) GetByID(_ context.Context, walletID string) (store.Wallet, error) {
	for _, wallet := range s.byUser {
		if wallet.ID == walletID {
			return wallet, nil
		}
	}
	return store.Wallet{}, sql.ErrNoRows
}

func (s stubWallets) GetByUserID(_ context.Context, userID string) (store.Wallet, error) {
	wallet, ok := s.byUser[userID]
	if !ok {
		return store.Wallet{}, sql.ErrNoRows
	}
	return wallet, nil
}

type stubUsers struct {
	byID     map[string]store.User
	createFn func(ctx context.Context, input store.UserInput) (store.User, error)
	updateFn func(ctx context.Context, userID string, update store.UserUpdate) (store.User, error)
	deleteFn func(ctx context.Context, userID string) (bool, error)
}

func (s stubUsers) GetByID(_ context.Context, userID string) (store.User, error) {
	user, ok := s.byID[userID]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (s stubUsers) GetByEmail(_ context.Context, email string) (store.User, error) {
	for _, user := range s.byID {
		if user.Email == email {
			return user, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (s stubUsers) Create(ctx context.Context, _ store.Getter, input store.UserInput) (store.User, error) {
	return s.createFn(ctx, input)
}

func (s stubUsers) Update(ctx context.Context, _ store.Getter, userID string, update store.UserUpdate, _ time.Time) (store.User, error) {
	return s.updateFn(ctx, userID, update)
}

func (s stubUsers) Delete(ctx context.Context, _ store.Execer, userID string) (bool, error) {
	return s.deleteFn(ctx, userID)
}

type stubTransactions struct {
	getFn  func(ctx context.Context, transactionID string) (store.TransactionDetail, error)
	listFn func(ctx context.Context, userID, direction string, limit, offset int) ([]store.TransactionDetail, error)
}

func (s stubTransactions) GetByTransactionID(ctx context.Context, transactionID string) (store.TransactionDetail, error) {
	return s.getFn(ctx, transactionID)
}

func (s stubTransactions) ListByUser(ctx context.Context, userID, direction string, limit, offset int) ([]store.TransactionDetail, error) {
	return s.listFn(ctx, userID, direction, limit, offset)
}

type stubAccess struct {
	admins map[string]bool
}

func (s stubAccess) IsAdmin(_ context.Context, userID string) (bool, error) {
	return s.admins[userID], nil
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []store.AuditEntry
	err     error
}

func (r *recordingAudit) Log(_ context.Context, _ store.Execer, entry store.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

type stubHub struct {
	users []string
	calls []websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(userID string, update websocket.BalanceUpdate) {
	s.users = append(s.users, userID)
	s.calls = append(s.calls, update)
}

type stubPublisher struct {
	events []events.TransactionEvent
	err    error
}

func (s *stubPublisher) Publish(_ context.Context, event events.TransactionEvent) error {
	s.events = append(s.events, event)
	return s.err
}

type seqIDs struct {
	ids []string
	n   int
}

func (s *seqIDs) Generate(prefix string) (string, error) {
	id := s.ids[s.n%len(s.ids)]
	s.n++
	return prefix + "-" + id, nil
}

func stringPtr(value string) *string {
	return &value
}
