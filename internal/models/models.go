// Package models holds the JSON shapes the API returns. Money is rendered
// as a decimal string in major units; storage types never leave handlers.
package models

import (
	"encoding/json"
	"time"

	"quickpay/internal/money"
	"quickpay/internal/store"
)

type User struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	Country   string    `json:"country"`
	Address   *string   `json:"address"`
	City      *string   `json:"city"`
	ZipCode   *string   `json:"zip_code"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUser(u store.User) User {
	return User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		FullName:  u.FullName(),
		Email:     u.Email,
		Phone:     u.Phone,
		Country:   u.Country,
		Address:   u.Address,
		City:      u.City,
		ZipCode:   u.ZipCode,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func NewUsers(rows []store.User) []User {
	out := make([]User, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewUser(row))
	}
	return out
}

// UserLookup is what one user may learn about another before paying them.
type UserLookup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Wallet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Balance   string    `json:"balance"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewWallet(w store.Wallet) Wallet {
	return Wallet{
		ID:        w.ID,
		UserID:    w.UserID,
		Balance:   money.FormatMinor(w.Balance),
		Currency:  w.Currency,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

type WalletWithOwner struct {
	Wallet
	OwnerName  string `json:"owner_name"`
	OwnerEmail string `json:"owner_email"`
}

func NewWalletsWithOwner(rows []store.WalletWithOwner) []WalletWithOwner {
	out := make([]WalletWithOwner, 0, len(rows))
	for _, row := range rows {
		out = append(out, WalletWithOwner{
			Wallet:     NewWallet(row.Wallet),
			OwnerName:  row.OwnerName,
			OwnerEmail: row.OwnerEmail,
		})
	}
	return out
}

type Transaction struct {
	TransactionID    string          `json:"transaction_id"`
	SenderID         string          `json:"sender_id"`
	ReceiverID       string          `json:"receiver_id"`
	SenderName       *string         `json:"sender_name,omitempty"`
	ReceiverName     *string         `json:"receiver_name,omitempty"`
	SenderWalletID   string          `json:"sender_wallet_id"`
	ReceiverWalletID string          `json:"receiver_wallet_id"`
	Amount           string          `json:"amount"`
	Fee              string          `json:"fee"`
	TotalAmount      string          `json:"total_amount"`
	Type             string          `json:"type"`
	Status           string          `json:"status"`
	Note             string          `json:"note"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

func NewTransaction(t store.Transaction) Transaction {
	out := Transaction{
		TransactionID:    t.TransactionID,
		SenderID:         t.SenderID,
		ReceiverID:       t.ReceiverID,
		SenderWalletID:   t.SenderWalletID,
		ReceiverWalletID: t.ReceiverWalletID,
		Amount:           money.FormatMinor(t.Amount),
		Fee:              money.FormatMinor(t.Fee),
		TotalAmount:      money.FormatMinor(t.TotalAmount),
		Type:             t.Type,
		Status:           t.Status,
		Note:             t.Note,
		CreatedAt:        t.CreatedAt,
	}
	if t.Metadata != "" && json.Valid([]byte(t.Metadata)) {
		out.Metadata = json.RawMessage(t.Metadata)
	}
	return out
}

func NewTransactionDetail(t store.TransactionDetail) Transaction {
	out := NewTransaction(t.Transaction)
	out.SenderName = t.SenderName
	out.ReceiverName = t.ReceiverName
	return out
}

func NewTransactionDetails(rows []store.TransactionDetail) []Transaction {
	out := make([]Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewTransactionDetail(row))
	}
	return out
}

type Entry struct {
	ID            int64     `json:"id"`
	TransactionID string    `json:"transaction_id"`
	WalletID      string    `json:"wallet_id"`
	Amount        string    `json:"amount"`
	BalanceAfter  string    `json:"balance_after"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewEntries(rows []store.Entry) []Entry {
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, Entry{
			ID:            row.ID,
			TransactionID: row.TransactionID,
			WalletID:      row.WalletID,
			Amount:        money.FormatMinor(row.Amount),
			BalanceAfter:  money.FormatMinor(row.BalanceAfter),
			Description:   row.Description,
			CreatedAt:     row.CreatedAt,
		})
	}
	return out
}

type Reconciliation struct {
	WalletID      string `json:"wallet_id"`
	UserID        string `json:"user_id"`
	StoredBalance string `json:"stored_balance"`
	EntrySum      string `json:"entry_sum"`
	Difference    string `json:"difference"`
	Balanced      bool   `json:"balanced"`
}

func NewReconciliations(rows []store.WalletReconciliation) []Reconciliation {
	out := make([]Reconciliation, 0, len(rows))
	for _, row := range rows {
		out = append(out, Reconciliation{
			WalletID:      row.WalletID,
			UserID:        row.UserID,
			StoredBalance: money.FormatMinor(row.StoredBalance),
			EntrySum:      money.FormatMinor(row.EntrySum),
			Difference:    money.FormatMinor(row.Difference),
			Balanced:      row.Difference == 0,
		})
	}
	return out
}

type Beneficiary struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone"`
	Relationship *string   `json:"relationship"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewBeneficiary(b store.Beneficiary) Beneficiary {
	return Beneficiary{
		ID:           b.ID,
		UserID:       b.UserID,
		Name:         b.Name,
		Email:        b.Email,
		Phone:        b.Phone,
		Relationship: b.Relationship,
		CreatedAt:    b.CreatedAt,
	}
}

func NewBeneficiaries(rows []store.Beneficiary) []Beneficiary {
	out := make([]Beneficiary, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewBeneficiary(row))
	}
	return out
}

type AuditLog struct {
	ID          int64           `json:"id"`
	ActorUserID *string         `json:"actor_user_id"`
	Action      string          `json:"action"`
	EntityType  string          `json:"entity_type"`
	EntityID    string          `json:"entity_id"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
}

func NewAuditLogs(rows []store.AuditLog) []AuditLog {
	out := make([]AuditLog, 0, len(rows))
	for _, row := range rows {
		data := json.RawMessage(`{}`)
		if row.Data != "" && json.Valid([]byte(row.Data)) {
			data = json.RawMessage(row.Data)
		}
		out = append(out, AuditLog{
			ID:          row.ID,
			ActorUserID: row.ActorUserID,
			Action:      row.Action,
			EntityType:  row.EntityType,
			EntityID:    row.EntityID,
			Data:        data,
			CreatedAt:   row.CreatedAt,
		})
	}
	return out
}
