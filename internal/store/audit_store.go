package store

import (
	"context"
	"encoding/json"
	"time"
)

const (
	AuditTransfer    = "transfer"
	AuditAddFunds    = "add_funds"
	AuditAdjustment  = "wallet_adjustment"
	AuditRegister    = "register"
	AuditLogin       = "login"
	AuditUserUpdated = "user_updated"
	AuditUserDeleted = "user_deleted"

	AuditEntityUser        = "user"
	AuditEntityWallet      = "wallet"
	AuditEntityTransaction = "transaction"
)

type AuditStore struct {
	db DB
}

type AuditLog struct {
	ID          int64     `db:"id"`
	ActorUserID *string   `db:"actor_user_id"`
	Action      string    `db:"action"`
	EntityType  string    `db:"entity_type"`
	EntityID    string    `db:"entity_id"`
	Data        string    `db:"data"`
	CreatedAt   time.Time `db:"created_at"`
}

// AuditEntry is one row to append. Data is stored as JSON; an empty
// ActorUserID is stored as NULL.
type AuditEntry struct {
	ActorUserID string
	Action      string
	EntityType  string
	EntityID    string
	Data        any
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Log(ctx context.Context, tx Execer, entry AuditEntry) error {
	data := []byte("{}")
	if entry.Data != nil {
		encoded, err := json.Marshal(entry.Data)
		if err != nil {
			return err
		}
		data = encoded
	}
	var actor *string
	if entry.ActorUserID != "" {
		actor = &entry.ActorUserID
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_logs (actor_user_id, action, entity_type, entity_id, data)
		VALUES ($1, $2, $3, $4, $5)
	`, actor, entry.Action, entry.EntityType, entry.EntityID, string(data))
	return err
}

func (s *AuditStore) List(ctx context.Context, limit, offset int) ([]AuditLog, error) {
	var rows []AuditLog
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, actor_user_id, action, entity_type, entity_id, data::text AS data, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
