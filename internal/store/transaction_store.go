package store

import (
	"context"
	"time"
)

const (
	TypeTransfer   = "transfer"
	TypeAddFunds   = "add_funds"
	TypeAdjustment = "adjustment"

	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Direction filters for ListByUser.
const (
	DirectionAll      = "all"
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

type TransactionStore struct {
	db DB
}

type Transaction struct {
	ID               int64     `db:"id"`
	TransactionID    string    `db:"transaction_id"`
	SenderID         string    `db:"sender_id"`
	ReceiverID       string    `db:"receiver_id"`
	SenderWalletID   string    `db:"sender_wallet_id"`
	ReceiverWalletID string    `db:"receiver_wallet_id"`
	Amount           int64     `db:"amount"`
	Fee              int64     `db:"fee"`
	TotalAmount      int64     `db:"total_amount"`
	Type             string    `db:"type"`
	Status           string    `db:"status"`
	Note             string    `db:"note"`
	Metadata         string    `db:"metadata"`
	CreatedAt        time.Time `db:"created_at"`
}

// TransactionDetail carries the display names of both parties.
type TransactionDetail struct {
	Transaction
	SenderName   *string `db:"sender_name"`
	ReceiverName *string `db:"receiver_name"`
}

type TransactionInput struct {
	TransactionID    string
	SenderID         string
	ReceiverID       string
	SenderWalletID   string
	ReceiverWalletID string
	Amount           int64
	Fee              int64
	Type             string
	Status           string
	Note             string
	Metadata         string
	CreatedAt        time.Time
}

const transactionColumns = `id, transaction_id, sender_id, receiver_id, sender_wallet_id, receiver_wallet_id,
		amount, fee, total_amount, type, status, note, metadata::text AS metadata, created_at`

const transactionDetailSelect = `
		SELECT t.id, t.transaction_id, t.sender_id, t.receiver_id, t.sender_wallet_id, t.receiver_wallet_id,
		       t.amount, t.fee, t.total_amount, t.type, t.status, t.note, t.metadata::text AS metadata, t.created_at,
		       su.first_name || ' ' || su.last_name AS sender_name,
		       ru.first_name || ' ' || ru.last_name AS receiver_name
		FROM transactions t
		LEFT JOIN users su ON su.id = t.sender_id
		LEFT JOIN users ru ON ru.id = t.receiver_id
	`

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// Insert writes one immutable record. total_amount is derived from amount
// and fee here so the two can never disagree. A transaction_id collision
// returns ErrDuplicateID without aborting the surrounding unit of work.
func (s *TransactionStore) Insert(ctx context.Context, tx Getter, input TransactionInput) (Transaction, error) {
	metadata := input.Metadata
	if metadata == "" {
		metadata = "{}"
	}
	var row Transaction
	err := tx.GetContext(ctx, &row, `
		INSERT INTO transactions (transaction_id, sender_id, receiver_id, sender_wallet_id, receiver_wallet_id,
		                          amount, fee, total_amount, type, status, note, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (transaction_id) DO NOTHING
		RETURNING `+transactionColumns,
		input.TransactionID, input.SenderID, input.ReceiverID, input.SenderWalletID, input.ReceiverWalletID,
		input.Amount, input.Fee, input.Amount+input.Fee, input.Type, input.Status, input.Note, metadata, input.CreatedAt,
	)
	if IsNotFound(err) {
		return Transaction{}, ErrDuplicateID
	}
	if err != nil {
		return Transaction{}, err
	}
	return row, nil
}

func (s *TransactionStore) GetByTransactionID(ctx context.Context, transactionID string) (TransactionDetail, error) {
	var row TransactionDetail
	err := s.db.GetContext(ctx, &row, transactionDetailSelect+" WHERE t.transaction_id = $1", transactionID)
	if err != nil {
		return TransactionDetail{}, err
	}
	return row, nil
}

// ListByUser lists transactions involving userID, newest first. Unknown
// directions behave like DirectionAll.
func (s *TransactionStore) ListByUser(ctx context.Context, userID, direction string, limit, offset int) ([]TransactionDetail, error) {
	var where string
	switch direction {
	case DirectionSent:
		where = " WHERE t.sender_id = $1"
	case DirectionReceived:
		where = " WHERE t.receiver_id = $1"
	default:
		where = " WHERE (t.sender_id = $1 OR t.receiver_id = $1)"
	}
	query := transactionDetailSelect + where + " ORDER BY t.created_at DESC, t.id DESC LIMIT $2 OFFSET $3"
	var rows []TransactionDetail
	if err := s.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) ListAll(ctx context.Context, limit, offset int) ([]TransactionDetail, error) {
	var rows []TransactionDetail
	err := s.db.SelectContext(ctx, &rows, transactionDetailSelect+" ORDER BY t.created_at DESC, t.id DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
