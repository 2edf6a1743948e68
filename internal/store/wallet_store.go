package store

import (
	"context"
	"time"
)

type WalletStore struct {
	db DB
}

type Wallet struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Balance   int64     `db:"balance"`
	Currency  string    `db:"currency"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type WalletWithOwner struct {
	Wallet
	OwnerName  string `db:"owner_name"`
	OwnerEmail string `db:"owner_email"`
}

// WalletReconciliation compares the stored balance with the entry journal.
type WalletReconciliation struct {
	WalletID      string `db:"wallet_id"`
	UserID        string `db:"user_id"`
	StoredBalance int64  `db:"stored_balance"`
	EntrySum      int64  `db:"entry_sum"`
	Difference    int64  `db:"difference"`
}

const walletColumns = `id, user_id, balance, currency, created_at, updated_at`

func NewWalletStore(db DB) *WalletStore {
	return &WalletStore{db: db}
}

// Create inserts an empty wallet, returning ErrDuplicateID when the id is taken.
func (s *WalletStore) Create(ctx context.Context, tx Getter, id, userID, currency string) (Wallet, error) {
	var row Wallet
	err := tx.GetContext(ctx, &row, `
		INSERT INTO wallets (id, user_id, currency)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
		RETURNING `+walletColumns, id, userID, currency)
	if IsNotFound(err) {
		return Wallet{}, ErrDuplicateID
	}
	if err != nil {
		return Wallet{}, err
	}
	return row, nil
}

func (s *WalletStore) GetByID(ctx context.Context, walletID string) (Wallet, error) {
	var row Wallet
	err := s.db.GetContext(ctx, &row, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, walletID)
	if err != nil {
		return Wallet{}, err
	}
	return row, nil
}

func (s *WalletStore) GetByUserID(ctx context.Context, userID string) (Wallet, error) {
	var row Wallet
	err := s.db.GetContext(ctx, &row, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	if err != nil {
		return Wallet{}, err
	}
	return row, nil
}

func (s *WalletStore) GetForUpdate(ctx context.Context, tx Getter, walletID string) (Wallet, error) {
	var row Wallet
	err := tx.GetContext(ctx, &row, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE id = $1
		FOR UPDATE
	`, walletID)
	if err != nil {
		return Wallet{}, err
	}
	return row, nil
}

func (s *WalletStore) UpdateBalance(ctx context.Context, tx Execer, walletID string, balance int64, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = $1, updated_at = $2
		WHERE id = $3
	`, balance, at, walletID)
	return err
}

func (s *WalletStore) List(ctx context.Context, limit, offset int) ([]WalletWithOwner, error) {
	var rows []WalletWithOwner
	err := s.db.SelectContext(ctx, &rows, `
		SELECT w.id, w.user_id, w.balance, w.currency, w.created_at, w.updated_at,
		       u.first_name || ' ' || u.last_name AS owner_name,
		       u.email AS owner_email
		FROM wallets w
		JOIN users u ON u.id = w.user_id
		ORDER BY w.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Reconcile returns every wallet when userID is empty.
func (s *WalletStore) Reconcile(ctx context.Context, userID string) ([]WalletReconciliation, error) {
	query := `
		SELECT w.id AS wallet_id,
		       w.user_id,
		       w.balance AS stored_balance,
		       COALESCE(SUM(e.amount), 0) AS entry_sum,
		       (w.balance - COALESCE(SUM(e.amount), 0)) AS difference
		FROM wallets w
		LEFT JOIN wallet_entries e ON e.wallet_id = w.id
	`
	args := []any{}
	if userID != "" {
		query += " WHERE w.user_id = $1"
		args = append(args, userID)
	}
	query += " GROUP BY w.id, w.user_id, w.balance ORDER BY w.id"
	var rows []WalletReconciliation
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
