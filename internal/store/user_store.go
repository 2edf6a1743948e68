package store

import (
	"context"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

type User struct {
	ID           string    `db:"id"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Phone        *string   `db:"phone"`
	Country      string    `db:"country"`
	Address      *string   `db:"address"`
	City         *string   `db:"city"`
	ZipCode      *string   `db:"zip_code"`
	Role         string    `db:"role"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type UserInput struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Phone        *string
	Country      string
	Address      *string
	City         *string
	ZipCode      *string
	Role         string
}

// UserUpdate holds the admin-editable fields. Nil fields are left as they are.
type UserUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Role      *string `json:"role,omitempty"`
	Status    *string `json:"status,omitempty"`
}

const userColumns = `id, first_name, last_name, email, password_hash, phone, country, address, city, zip_code,
		role, status, created_at, updated_at`

func (s *UserStore) Create(ctx context.Context, tx Getter, input UserInput) (User, error) {
	country := input.Country
	if country == "" {
		country = "Kenya"
	}
	role := input.Role
	if role == "" {
		role = RoleUser
	}
	var row User
	err := tx.GetContext(ctx, &row, `
		INSERT INTO users (id, first_name, last_name, email, password_hash, phone, country, address, city, zip_code, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+userColumns,
		input.ID, input.FirstName, input.LastName, input.Email, input.PasswordHash,
		input.Phone, country, input.Address, input.City, input.ZipCode, role,
	)
	if err != nil {
		return User{}, err
	}
	return row, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (User, error) {
	var row User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	if err != nil {
		return User{}, err
	}
	return row, nil
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (User, error) {
	var row User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	if err != nil {
		return User{}, err
	}
	return row, nil
}

func (s *UserStore) List(ctx context.Context, limit, offset int) ([]User, error) {
	var rows []User
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *UserStore) Update(ctx context.Context, tx Getter, userID string, update UserUpdate, at time.Time) (User, error) {
	var row User
	err := tx.GetContext(ctx, &row, `
		UPDATE users
		SET first_name = COALESCE($1, first_name),
		    last_name = COALESCE($2, last_name),
		    phone = COALESCE($3, phone),
		    role = COALESCE($4, role),
		    status = COALESCE($5, status),
		    updated_at = $6
		WHERE id = $7
		RETURNING `+userColumns,
		update.FirstName, update.LastName, update.Phone, update.Role, update.Status, at, userID,
	)
	if err != nil {
		return User{}, err
	}
	return row, nil
}

// Delete removes the user. The wallet and beneficiaries cascade; existing
// transaction history makes the delete fail with a foreign key violation.
func (s *UserStore) Delete(ctx context.Context, tx Execer, userID string) (bool, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
