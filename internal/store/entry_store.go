package store

import (
	"context"
	"time"
)

// EntryStore appends to wallet_entries, the per-wallet balance journal.
type EntryStore struct {
	db DB
}

type Entry struct {
	ID            int64     `db:"id"`
	TransactionID string    `db:"transaction_id"`
	WalletID      string    `db:"wallet_id"`
	Amount        int64     `db:"amount"`
	BalanceAfter  int64     `db:"balance_after"`
	Description   string    `db:"description"`
	CreatedAt     time.Time `db:"created_at"`
}

type EntryInput struct {
	TransactionID string
	WalletID      string
	Amount        int64
	BalanceAfter  int64
	Description   string
}

func NewEntryStore(db DB) *EntryStore {
	return &EntryStore{db: db}
}

func (s *EntryStore) InsertEntries(ctx context.Context, tx Execer, entries []EntryInput) error {
	query := `
		INSERT INTO wallet_entries (transaction_id, wallet_id, amount, balance_after, description)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, query, entry.TransactionID, entry.WalletID, entry.Amount, entry.BalanceAfter, entry.Description); err != nil {
			return err
		}
	}
	return nil
}

func (s *EntryStore) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]Entry, error) {
	var rows []Entry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, transaction_id, wallet_id, amount, balance_after, description, created_at
		FROM wallet_entries
		WHERE wallet_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
