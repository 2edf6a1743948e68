package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"quickpay/internal/fee"
	"quickpay/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore keeps wallets, transactions and entries in memory. run gives
// each unit of work exclusive access and restores the snapshot when the
// work fails, which is what the database does for the ledger.
type memStore struct {
	mu           sync.Mutex
	wallets      map[string]store.Wallet
	transactions []store.Transaction
	entries      []store.EntryInput
	taken        map[string]bool
	lockOrder    []string
	updateErr    error
}

func newMemStore(wallets ...store.Wallet) *memStore {
	m := &memStore{wallets: map[string]store.Wallet{}, taken: map[string]bool{}}
	for _, w := range wallets {
		m.wallets[w.ID] = w
	}
	return m
}

func (m *memStore) run(fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	wallets := make(map[string]store.Wallet, len(m.wallets))
	for k, v := range m.wallets {
		wallets[k] = v
	}
	txCount, entryCount := len(m.transactions), len(m.entries)
	if err := fn(); err != nil {
		m.wallets = wallets
		m.transactions = m.transactions[:txCount]
		m.entries = m.entries[:entryCount]
		return err
	}
	return nil
}

func (m *memStore) GetForUpdate(_ context.Context, _ store.Getter, walletID string) (store.Wallet, error) {
	m.lockOrder = append(m.lockOrder, walletID)
	w, ok := m.wallets[walletID]
	if !ok {
		return store.Wallet{}, sql.ErrNoRows
	}
	return w, nil
}

func (m *memStore) UpdateBalance(_ context.Context, _ store.Execer, walletID string, balance int64, at time.Time) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if balance < 0 {
		return errors.New("balance check violated")
	}
	w := m.wallets[walletID]
	w.Balance, w.UpdatedAt = balance, at
	m.wallets[walletID] = w
	return nil
}

func (m *memStore) Insert(_ context.Context, _ store.Getter, input store.TransactionInput) (store.Transaction, error) {
	if m.taken[input.TransactionID] {
		return store.Transaction{}, store.ErrDuplicateID
	}
	m.taken[input.TransactionID] = true
	row := store.Transaction{
		ID:               int64(len(m.transactions) + 1),
		TransactionID:    input.TransactionID,
		SenderID:         input.SenderID,
		ReceiverID:       input.ReceiverID,
		SenderWalletID:   input.SenderWalletID,
		ReceiverWalletID: input.ReceiverWalletID,
		Amount:           input.Amount,
		Fee:              input.Fee,
		TotalAmount:      input.Amount + input.Fee,
		Type:             input.Type,
		Status:           input.Status,
		Note:             input.Note,
		Metadata:         input.Metadata,
		CreatedAt:        input.CreatedAt,
	}
	m.transactions = append(m.transactions, row)
	return row, nil
}

func (m *memStore) InsertEntries(_ context.Context, _ store.Execer, entries []store.EntryInput) error {
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *memStore) entrySum(walletID string) int64 {
	var sum int64
	for _, e := range m.entries {
		if e.WalletID == walletID {
			sum += e.Amount
		}
	}
	return sum
}

type seqIDs struct {
	mu  sync.Mutex
	ids []string
	n   int
}

func (s *seqIDs) Generate(prefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n < len(s.ids) {
		id := s.ids[s.n]
		s.n++
		return id, nil
	}
	s.n++
	return fmt.Sprintf("%s-%07d", prefix, s.n), nil
}

func ratePolicy(t *testing.T, rate string) fee.RatePolicy {
	t.Helper()
	policy, err := fee.NewRatePolicy(decimal.RequireFromString(rate), 0, 0)
	require.NoError(t, err)
	return policy
}

var fixedNow = time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

func newTestLedger(t *testing.T, m *memStore, ids IDGenerator) *Ledger {
	if ids == nil {
		ids = &seqIDs{}
	}
	return New(m, m, m, ratePolicy(t, "0.015"), ids, WithClock(func() time.Time { return fixedNow }))
}

func TestTransferMovesAmountAndFee(t *testing.T) {
	m := newMemStore(
		store.Wallet{ID: "QP-A", UserID: "alice", Balance: 10000},
		store.Wallet{ID: "QP-B", UserID: "bob", Balance: 10000},
	)
	l := newTestLedger(t, m, nil)

	var result TransferResult
	err := m.run(func() (err error) {
		result, err = l.Transfer(context.Background(), nil, "QP-A", "QP-B", 5000, "rent")
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, int64(4925), m.wallets["QP-A"].Balance)
	assert.Equal(t, int64(15000), m.wallets["QP-B"].Balance)
	require.Len(t, m.transactions, 1)
	tx := m.transactions[0]
	assert.Equal(t, int64(5000), tx.Amount)
	assert.Equal(t, int64(75), tx.Fee)
	assert.Equal(t, int64(5075), tx.TotalAmount)
	assert.Equal(t, store.StatusCompleted, tx.Status)
	assert.Equal(t, store.TypeTransfer, tx.Type)
	assert.Equal(t, "alice", tx.SenderID)
	assert.Equal(t, "bob", tx.ReceiverID)
	assert.Equal(t, fixedNow, m.wallets["QP-A"].UpdatedAt)

	assert.Equal(t, int64(4925), result.Sender.Balance)
	assert.Equal(t, int64(15000), result.Receiver.Balance)
	assert.Equal(t, int64(-5075), m.entrySum("QP-A"))
	assert.Equal(t, int64(5000), m.entrySum("QP-B"))
}

func TestTransferInsufficientFundsLeavesNoTrace(t *testing.T) {
	m := newMemStore(
		store.Wallet{ID: "QP-A", UserID: "alice", Balance: 1000},
		store.Wallet{ID: "QP-B", UserID: "bob", Balance: 500},
	)
	l := newTestLedger(t, m, nil)

	err := m.run(func() error {
		_, err := l.Transfer(context.Background(), nil, "QP-A", "QP-B", 5000, "")
		return err
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(1000), m.wallets["QP-A"].Balance)
	assert.Equal(t, int64(500), m.wallets["QP-B"].Balance)
	assert.Empty(t, m.transactions)
	assert.Empty(t, m.entries)
}

func TestTransferFeeCountsTowardsBalanceCheck(t *testing.T) {
	// 100.00 covers the amount but not the 1.50 fee.
	m := newMemStore(
		store.Wallet{ID: "QP-A", UserID: "alice", Balance: 10000},
		store.Wallet{ID: "QP-B", UserID: "bob"},
	)
	l := newTestLedger(t, m, nil)
	err := m.run(func() error {
		_, err := l.Transfer(context.Background(), nil, "QP-A", "QP-B", 10000, "")
		return err
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestTransferRejectsNonPositiveAmount(t *testing.T) {
	m := newMemStore(store.Wallet{ID: "QP-A"}, store.Wallet{ID: "QP-B"})
	l := newTestLedger(t, m, nil)
	for _, amount := range []int64{0, -100} {
		_, err := l.Transfer(context.Background(), nil, "QP-A", "QP-B", amount, "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
	assert.Empty(t, m.lockOrder)
}

func TestTransferUnknownWallet(t *testing.T) {
	m := newMemStore(store.Wallet{ID: "QP-A", Balance: 10000})
	l := newTestLedger(t, m, nil)
	err := m.run(func() error {
		_, err := l.Transfer(context.Background(), nil, "QP-A", "QP-Z", 100, "")
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(10000), m.wallets["QP-A"].Balance)
}

func TestTransferLocksInAscendingOrder(t *testing.T) {
	m := newMemStore(
		store.Wallet{ID: "QP-A", Balance: 10000},
		store.Wallet{ID: "QP-B", Balance: 10000},
	)
	l := newTestLedger(t, m, nil)
	require.NoError(t, m.run(func() error {
		_, err := l.Transfer(context.Background(), nil, "QP-B", "QP-A", 100, "")
		return err
	}))
	assert.Equal(t, []string{"QP-A", "QP-B"}, m.lockOrder)
	assert.Equal(t, int64(10000-102), m.wallets["QP-B"].Balance)
	assert.Equal(t, int64(10100), m.wallets["QP-A"].Balance)
}

func TestSelfTransferChargesOnlyTheFee(t *testing.T) {
	m := newMemStore(store.Wallet{ID: "QP-A", UserID: "alice", Balance: 10000})
	l := newTestLedger(t, m, nil)

	var result TransferResult
	require.NoError(t, m.run(func() (err error) {
		result, err = l.Transfer(context.Background(), nil, "QP-A", "QP-A", 5000, "")
		return err
	}))
	assert.Equal(t, int64(9925), m.wallets["QP-A"].Balance)
	assert.Equal(t, int64(9925), result.Sender.Balance)
	assert.Equal(t, int64(9925), result.Receiver.Balance)
	assert.Equal(t, []string{"QP-A"}, m.lockOrder)
	assert.Equal(t, int64(-75), m.entrySum("QP-A"))
}

func TestTransferRetriesIDCollision(t *testing.T) {
	m := newMemStore(
		store.Wallet{ID: "QP-A", Balance: 10000},
		store.Wallet{ID: "QP-B"},
	)
	m.taken["TXN-TAKEN01"] = true
	ids := &seqIDs{ids: []string{"TXN-TAKEN01", "TXN-FRESH01"}}
	l := newTestLedger(t, m, ids)

	var result TransferResult
	require.NoError(t, m.run(func() (err error) {
		result, err = l.Transfer(context.Background(), nil, "QP-A", "QP-B", 1000, "")
		return err
	}))
	assert.Equal(t, "TXN-FRESH01", result.Transaction.TransactionID)
}

func TestTransferIDCollisionExhausted(t *testing.T) {
	m := newMemStore(
		store.Wallet{ID: "QP-A", Balance: 10000},
		store.Wallet{ID: "QP-B"},
	)
	m.taken["TXN-SAME000"] = true
	ids := &seqIDs{ids: []string{"TXN-SAME000", "TXN-SAME000", "TXN-SAME000", "TXN-NEVER00"}}
	l := newTestLedger(t, m, ids)

	err := m.run(func() error {
		_, err := l.Transfer(context.Background(), nil, "QP-A", "QP-B", 1000, "")
		return err
	})
	assert.ErrorIs(t, err, ErrIDCollision)
	assert.Equal(t, int64(10000), m.wallets["QP-A"].Balance)
	assert.Equal(t, 3, ids.n)
}

func TestTransferStorageFailureRollsBack(t *testing.T) {
	m := newMemStore(
		store.Wallet{ID: "QP-A", Balance: 10000},
		store.Wallet{ID: "QP-B"},
	)
	m.updateErr = errors.New("lock timeout")
	l := newTestLedger(t, m, nil)
	err := m.run(func() error {
		_, err := l.Transfer(context.Background(), nil, "QP-A", "QP-B", 1000, "")
		return err
	})
	assert.Error(t, err)
	assert.Equal(t, int64(10000), m.wallets["QP-A"].Balance)
	assert.Empty(t, m.transactions)
}

func TestCreditAddFunds(t *testing.T) {
	m := newMemStore(store.Wallet{ID: "QP-A", UserID: "alice"})
	l := newTestLedger(t, m, nil)

	var result Result
	require.NoError(t, m.run(func() (err error) {
		result, err = l.Credit(context.Background(), nil, "QP-A", 2500, store.TypeAddFunds, "Added funds to wallet")
		return err
	}))
	assert.Equal(t, int64(2500), result.Wallet.Balance)
	tx := result.Transaction
	assert.Equal(t, int64(0), tx.Fee)
	assert.Equal(t, int64(2500), tx.TotalAmount)
	assert.Equal(t, "alice", tx.SenderID)
	assert.Equal(t, "alice", tx.ReceiverID)
	assert.Equal(t, store.TypeAddFunds, tx.Type)
	assert.Equal(t, int64(2500), m.entrySum("QP-A"))
}

func TestCreditAdjustmentRecordsAction(t *testing.T) {
	m := newMemStore(store.Wallet{ID: "QP-A", UserID: "alice"})
	l := newTestLedger(t, m, nil)
	var result Result
	require.NoError(t, m.run(func() (err error) {
		result, err = l.Credit(context.Background(), nil, "QP-A", 100, store.TypeAdjustment, "")
		return err
	}))
	assert.JSONEq(t, `{"action":"add"}`, result.Transaction.Metadata)
}

func TestCreditRejectsBalanceOverflow(t *testing.T) {
	start := int64(4611686018427387809)
	m := newMemStore(store.Wallet{ID: "QP-A", UserID: "alice", Balance: start})
	l := newTestLedger(t, m, nil)
	err := m.run(func() error {
		_, err := l.Credit(context.Background(), nil, "QP-A", 4611686018427387999, store.TypeAdjustment, "")
		return err
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.NotErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, start, m.wallets["QP-A"].Balance)
	assert.Empty(t, m.transactions)

	require.NoError(t, m.run(func() error {
		_, err := l.Credit(context.Background(), nil, "QP-A", math.MaxInt64-start, store.TypeAddFunds, "")
		return err
	}))
	assert.Equal(t, int64(math.MaxInt64), m.wallets["QP-A"].Balance)
}

func TestTransferRejectsReceiverOverflow(t *testing.T) {
	m := newMemStore(
		store.Wallet{ID: "QP-A", UserID: "alice", Balance: 10000},
		store.Wallet{ID: "QP-B", UserID: "bob", Balance: math.MaxInt64 - 10},
	)
	l := newTestLedger(t, m, nil)
	err := m.run(func() error {
		_, err := l.Transfer(context.Background(), nil, "QP-A", "QP-B", 5000, "")
		return err
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, int64(10000), m.wallets["QP-A"].Balance)
	assert.Equal(t, int64(math.MaxInt64-10), m.wallets["QP-B"].Balance)
	assert.Empty(t, m.entries)
}

func TestCreditRejectsTransferType(t *testing.T) {
	m := newMemStore(store.Wallet{ID: "QP-A"})
	l := newTestLedger(t, m, nil)
	_, err := l.Credit(context.Background(), nil, "QP-A", 100, store.TypeTransfer, "")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestDebit(t *testing.T) {
	m := newMemStore(store.Wallet{ID: "QP-A", UserID: "alice", Balance: 5000})
	l := newTestLedger(t, m, nil)

	var result Result
	require.NoError(t, m.run(func() (err error) {
		result, err = l.Debit(context.Background(), nil, "QP-A", 3000, "chargeback")
		return err
	}))
	assert.Equal(t, int64(2000), result.Wallet.Balance)
	assert.Equal(t, int64(3000), result.Transaction.Amount)
	assert.Equal(t, store.TypeAdjustment, result.Transaction.Type)
	assert.JSONEq(t, `{"action":"deduct"}`, result.Transaction.Metadata)
	assert.Equal(t, int64(-3000), m.entrySum("QP-A"))
}

func TestDebitInsufficientFunds(t *testing.T) {
	m := newMemStore(store.Wallet{ID: "QP-A", Balance: 2000})
	l := newTestLedger(t, m, nil)
	err := m.run(func() error {
		_, err := l.Debit(context.Background(), nil, "QP-A", 3000, "")
		return err
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(2000), m.wallets["QP-A"].Balance)
	assert.Empty(t, m.transactions)
}

func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	m := newMemStore(
		store.Wallet{ID: "QP-A", UserID: "alice", Balance: 10000},
		store.Wallet{ID: "QP-B", UserID: "bob"},
	)
	l := newTestLedger(t, m, nil)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.run(func() error {
				_, err := l.Transfer(context.Background(), nil, "QP-A", "QP-B", 3000, "")
				return err
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	}
	// Each transfer costs 30.45; three fit into 100.00.
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, int64(10000-3*3045), m.wallets["QP-A"].Balance)
	assert.Equal(t, int64(9000), m.wallets["QP-B"].Balance)
	assert.Len(t, m.transactions, 3)

	ids := make([]string, 0, len(m.transactions))
	for _, tx := range m.transactions {
		ids = append(ids, tx.TransactionID)
	}
	sort.Strings(ids)
	for i := 1; i < len(ids); i++ {
		assert.NotEqual(t, ids[i-1], ids[i])
	}
	for id, w := range m.wallets {
		assert.Equal(t, w.Balance-startingBalance(id), m.entrySum(id), id)
	}
}

func startingBalance(walletID string) int64 {
	if walletID == "QP-A" {
		return 10000
	}
	return 0
}

func TestFee(t *testing.T) {
	l := newTestLedger(t, newMemStore(), nil)
	got, err := l.Fee(5000)
	require.NoError(t, err)
	assert.Equal(t, int64(75), got)

	_, err = l.Fee(0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
