package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quickpay/internal/money"
	"quickpay/internal/store"

	"github.com/redis/go-redis/v9"
)

const (
	TransactionEventsChannel = "transaction_events"

	EventTransactionCompleted = "transaction.completed"
)

// TransactionEvent is the payload published after a ledger operation
// commits. Amounts are decimal strings in major units.
type TransactionEvent struct {
	EventType        string    `json:"event_type"`
	TransactionID    string    `json:"transaction_id"`
	TransactionType  string    `json:"transaction_type"`
	Status           string    `json:"status"`
	SenderID         string    `json:"sender_id"`
	ReceiverID       string    `json:"receiver_id"`
	SenderWalletID   string    `json:"sender_wallet_id"`
	ReceiverWalletID string    `json:"receiver_wallet_id"`
	Amount           string    `json:"amount"`
	Fee              string    `json:"fee"`
	TotalAmount      string    `json:"total_amount"`
	Currency         string    `json:"currency"`
	Timestamp        time.Time `json:"timestamp"`
}

func Completed(tx store.Transaction, currency string) TransactionEvent {
	return TransactionEvent{
		EventType:        EventTransactionCompleted,
		TransactionID:    tx.TransactionID,
		TransactionType:  tx.Type,
		Status:           tx.Status,
		SenderID:         tx.SenderID,
		ReceiverID:       tx.ReceiverID,
		SenderWalletID:   tx.SenderWalletID,
		ReceiverWalletID: tx.ReceiverWalletID,
		Amount:           money.FormatMinor(tx.Amount),
		Fee:              money.FormatMinor(tx.Fee),
		TotalAmount:      money.FormatMinor(tx.TotalAmount),
		Currency:         currency,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event TransactionEvent) error
}

type RedisPublisher struct {
	rdb redis.Cmdable
	now func() time.Time
}

func NewRedisPublisher(rdb redis.Cmdable) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, now: time.Now}
}

func (p *RedisPublisher) Publish(ctx context.Context, event TransactionEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, TransactionEventsChannel, string(payload)).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.EventType, err)
	}
	return nil
}

// NopPublisher is used when no Redis address is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, TransactionEvent) error { return nil }
