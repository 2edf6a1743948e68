package store

import (
	"context"
	"database/sql"
	"errors"
)

// AdminStore answers access checks and the aggregate queries behind the
// admin dashboard.
type AdminStore struct {
	db DB
}

func NewAdminStore(db DB) *AdminStore {
	return &AdminStore{db: db}
}

type Access struct {
	Role   string `db:"role"`
	Status string `db:"status"`
}

func (a Access) IsAdmin() bool  { return a.Role == RoleAdmin }
func (a Access) IsActive() bool { return a.Status == UserStatusActive }

func (s *AdminStore) GetAccess(ctx context.Context, userID string) (Access, error) {
	var access Access
	err := s.db.GetContext(ctx, &access, `SELECT role, status FROM users WHERE id = $1`, userID)
	if err != nil {
		return Access{}, err
	}
	return access, nil
}

// IsAdmin reports whether userID holds the admin role and is active.
// A missing user is not an error.
func (s *AdminStore) IsAdmin(ctx context.Context, userID string) (bool, error) {
	access, err := s.GetAccess(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return access.IsAdmin() && access.IsActive(), nil
}

func (s *AdminStore) HasAnyAdmin(ctx context.Context) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM users WHERE role = 'admin'`)
	return count > 0, err
}

func (s *AdminStore) HasTransactions(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM transactions WHERE sender_id = $1 OR receiver_id = $1)
	`, userID)
	return exists, err
}

type UserCounts struct {
	Total  int64 `db:"total"`
	Active int64 `db:"active"`
}

func (s *AdminStore) CountUsers(ctx context.Context) (UserCounts, error) {
	var counts UserCounts
	err := s.db.GetContext(ctx, &counts, `
		SELECT COUNT(1) AS total,
		       COUNT(1) FILTER (WHERE status = 'active') AS active
		FROM users
	`)
	return counts, err
}

func (s *AdminStore) CountTransactions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM transactions`)
	return count, err
}

// TotalRevenue sums the fees of completed transfers, in minor units.
func (s *AdminStore) TotalRevenue(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(fee), 0) FROM transactions WHERE status = 'completed'
	`)
	return total, err
}

func (s *AdminStore) TotalWalletBalance(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total, `SELECT COALESCE(SUM(balance), 0) FROM wallets`)
	return total, err
}
