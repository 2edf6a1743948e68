// Package ledger is the only code that writes wallet balances. Every
// operation runs against a caller-supplied unit of work, locks the wallets
// it touches in ascending id order, and either completes every write or
// returns an error that the caller must roll back on.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"quickpay/internal/fee"
	"quickpay/internal/idgen"
	"quickpay/internal/store"
)

const defaultIDAttempts = 3

type WalletStore interface {
	GetForUpdate(ctx context.Context, tx store.Getter, walletID string) (store.Wallet, error)
	UpdateBalance(ctx context.Context, tx store.Execer, walletID string, balance int64, at time.Time) error
}

type TransactionStore interface {
	Insert(ctx context.Context, tx store.Getter, input store.TransactionInput) (store.Transaction, error)
}

type EntryStore interface {
	InsertEntries(ctx context.Context, tx store.Execer, entries []store.EntryInput) error
}

type IDGenerator interface {
	Generate(prefix string) (string, error)
}

type Ledger struct {
	wallets      WalletStore
	transactions TransactionStore
	entries      EntryStore
	fees         fee.Policy
	ids          IDGenerator
	now          func() time.Time
	idAttempts   int
}

type Option func(*Ledger)

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithIDAttempts(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.idAttempts = n
		}
	}
}

func New(wallets WalletStore, transactions TransactionStore, entries EntryStore, fees fee.Policy, ids IDGenerator, opts ...Option) *Ledger {
	l := &Ledger{
		wallets:      wallets,
		transactions: transactions,
		entries:      entries,
		fees:         fees,
		ids:          ids,
		now:          func() time.Time { return time.Now().UTC() },
		idAttempts:   defaultIDAttempts,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TransferResult holds the committed record and both wallets as they were
// left. For a self-transfer Sender and Receiver are the same wallet.
type TransferResult struct {
	Transaction store.Transaction
	Sender      store.Wallet
	Receiver    store.Wallet
}

type Result struct {
	Transaction store.Transaction
	Wallet      store.Wallet
}

// Fee returns the fee a transfer of amount would be charged.
func (l *Ledger) Fee(amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return l.fees.Compute(amount)
}

func (l *Ledger) Transfer(ctx context.Context, tx store.Tx, senderWalletID, receiverWalletID string, amount int64, note string) (TransferResult, error) {
	if amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	feeMinor, err := l.fees.Compute(amount)
	if err != nil {
		return TransferResult{}, fmt.Errorf("compute fee: %w", err)
	}
	if feeMinor > math.MaxInt64-amount {
		return TransferResult{}, ErrInvalidAmount
	}
	total := amount + feeMinor

	sender, receiver, err := l.lockPair(ctx, tx, senderWalletID, receiverWalletID)
	if err != nil {
		return TransferResult{}, err
	}
	if sender.Balance < total {
		return TransferResult{}, ErrInsufficientFunds
	}
	if sender.ID != receiver.ID && !canCredit(receiver.Balance, amount) {
		return TransferResult{}, ErrInvalidAmount
	}

	now := l.now()
	debitedTo := sender.Balance - total
	creditedTo := receiver.Balance + amount
	if sender.ID == receiver.ID {
		creditedTo = debitedTo + amount
	}
	if err := l.wallets.UpdateBalance(ctx, tx, sender.ID, debitedTo, now); err != nil {
		return TransferResult{}, err
	}
	if err := l.wallets.UpdateBalance(ctx, tx, receiver.ID, creditedTo, now); err != nil {
		return TransferResult{}, err
	}

	record, err := l.insertTransaction(ctx, tx, store.TransactionInput{
		SenderID:         sender.UserID,
		ReceiverID:       receiver.UserID,
		SenderWalletID:   sender.ID,
		ReceiverWalletID: receiver.ID,
		Amount:           amount,
		Fee:              feeMinor,
		Type:             store.TypeTransfer,
		Status:           store.StatusCompleted,
		Note:             note,
		CreatedAt:        now,
	})
	if err != nil {
		return TransferResult{}, err
	}

	err = l.entries.InsertEntries(ctx, tx, []store.EntryInput{
		{TransactionID: record.TransactionID, WalletID: sender.ID, Amount: -total, BalanceAfter: debitedTo, Description: "transfer debit"},
		{TransactionID: record.TransactionID, WalletID: receiver.ID, Amount: amount, BalanceAfter: creditedTo, Description: "transfer credit"},
	})
	if err != nil {
		return TransferResult{}, err
	}

	sender.Balance, sender.UpdatedAt = debitedTo, now
	receiver.Balance, receiver.UpdatedAt = creditedTo, now
	if sender.ID == receiver.ID {
		sender = receiver
	}
	return TransferResult{Transaction: record, Sender: sender, Receiver: receiver}, nil
}

// Credit adds amount to a wallet with no fee. txType is TypeAddFunds for a
// user top-up or TypeAdjustment for an admin credit.
func (l *Ledger) Credit(ctx context.Context, tx store.Tx, walletID string, amount int64, txType, note string) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	var metadata string
	switch txType {
	case store.TypeAddFunds:
	case store.TypeAdjustment:
		metadata = encodeMetadata(map[string]string{"action": "add"})
	default:
		return Result{}, fmt.Errorf("credit type %q: %w", txType, ErrInvalidAction)
	}
	return l.applySingle(ctx, tx, walletID, amount, txType, note, metadata, "credit")
}

// Debit removes amount from a wallet and records it as an adjustment.
func (l *Ledger) Debit(ctx context.Context, tx store.Tx, walletID string, amount int64, note string) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	metadata := encodeMetadata(map[string]string{"action": "deduct"})
	return l.applySingle(ctx, tx, walletID, -amount, store.TypeAdjustment, note, metadata, "debit")
}

func (l *Ledger) applySingle(ctx context.Context, tx store.Tx, walletID string, delta int64, txType, note, metadata, description string) (Result, error) {
	wallet, err := l.lock(ctx, tx, walletID)
	if err != nil {
		return Result{}, err
	}
	if delta > 0 && !canCredit(wallet.Balance, delta) {
		return Result{}, ErrInvalidAmount
	}
	next := wallet.Balance + delta
	if next < 0 {
		return Result{}, ErrInsufficientFunds
	}
	now := l.now()
	if err := l.wallets.UpdateBalance(ctx, tx, wallet.ID, next, now); err != nil {
		return Result{}, err
	}

	amount := delta
	if amount < 0 {
		amount = -amount
	}
	record, err := l.insertTransaction(ctx, tx, store.TransactionInput{
		SenderID:         wallet.UserID,
		ReceiverID:       wallet.UserID,
		SenderWalletID:   wallet.ID,
		ReceiverWalletID: wallet.ID,
		Amount:           amount,
		Type:             txType,
		Status:           store.StatusCompleted,
		Note:             note,
		Metadata:         metadata,
		CreatedAt:        now,
	})
	if err != nil {
		return Result{}, err
	}
	err = l.entries.InsertEntries(ctx, tx, []store.EntryInput{
		{TransactionID: record.TransactionID, WalletID: wallet.ID, Amount: delta, BalanceAfter: next, Description: txType + " " + description},
	})
	if err != nil {
		return Result{}, err
	}

	wallet.Balance, wallet.UpdatedAt = next, now
	return Result{Transaction: record, Wallet: wallet}, nil
}

// insertTransaction draws fresh identifiers until the insert lands or the
// attempt budget runs out.
func (l *Ledger) insertTransaction(ctx context.Context, tx store.Tx, input store.TransactionInput) (store.Transaction, error) {
	for attempt := 0; attempt < l.idAttempts; attempt++ {
		id, err := l.ids.Generate(idgen.TransactionPrefix)
		if err != nil {
			return store.Transaction{}, fmt.Errorf("generate transaction id: %w", err)
		}
		input.TransactionID = id
		record, err := l.transactions.Insert(ctx, tx, input)
		if errors.Is(err, store.ErrDuplicateID) {
			continue
		}
		if err != nil {
			return store.Transaction{}, err
		}
		return record, nil
	}
	return store.Transaction{}, ErrIDCollision
}

func (l *Ledger) lock(ctx context.Context, tx store.Tx, walletID string) (store.Wallet, error) {
	wallet, err := l.wallets.GetForUpdate(ctx, tx, walletID)
	if store.IsNotFound(err) {
		return store.Wallet{}, fmt.Errorf("wallet %s: %w", walletID, ErrNotFound)
	}
	if err != nil {
		return store.Wallet{}, err
	}
	return wallet, nil
}

// lockPair locks both wallets in ascending id order so that mirrored
// transfers cannot deadlock. A self-transfer locks once.
func (l *Ledger) lockPair(ctx context.Context, tx store.Tx, firstID, secondID string) (store.Wallet, store.Wallet, error) {
	if firstID == secondID {
		wallet, err := l.lock(ctx, tx, firstID)
		return wallet, wallet, err
	}
	leftID, rightID := orderedIDs(firstID, secondID)
	left, err := l.lock(ctx, tx, leftID)
	if err != nil {
		return store.Wallet{}, store.Wallet{}, err
	}
	right, err := l.lock(ctx, tx, rightID)
	if err != nil {
		return store.Wallet{}, store.Wallet{}, err
	}
	if firstID == leftID {
		return left, right, nil
	}
	return right, left, nil
}

// canCredit reports whether amount can be added to a non-negative balance
// without leaving the int64 range.
func canCredit(balance, amount int64) bool {
	return amount <= math.MaxInt64-balance
}

func orderedIDs(firstID, secondID string) (string, string) {
	if firstID <= secondID {
		return firstID, secondID
	}
	return secondID, firstID
}

func encodeMetadata(values map[string]string) string {
	data, err := json.Marshal(values)
	if err != nil {
		return "{}"
	}
	return string(data)
}
