package store

import (
	"context"
	"time"
)

type BeneficiaryStore struct {
	db DB
}

type Beneficiary struct {
	ID           int64     `db:"id"`
	UserID       string    `db:"user_id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Phone        *string   `db:"phone"`
	Relationship *string   `db:"relationship"`
	CreatedAt    time.Time `db:"created_at"`
}

type BeneficiaryInput struct {
	Name         string
	Email        string
	Phone        *string
	Relationship *string
}

const beneficiaryColumns = `id, user_id, name, email, phone, relationship, created_at`

func NewBeneficiaryStore(db DB) *BeneficiaryStore {
	return &BeneficiaryStore{db: db}
}

func (s *BeneficiaryStore) Create(ctx context.Context, userID string, input BeneficiaryInput) (Beneficiary, error) {
	var row Beneficiary
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO beneficiaries (user_id, name, email, phone, relationship)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+beneficiaryColumns,
		userID, input.Name, input.Email, input.Phone, input.Relationship,
	)
	if err != nil {
		return Beneficiary{}, err
	}
	return row, nil
}

func (s *BeneficiaryStore) GetByID(ctx context.Context, id int64) (Beneficiary, error) {
	var row Beneficiary
	err := s.db.GetContext(ctx, &row, `SELECT `+beneficiaryColumns+` FROM beneficiaries WHERE id = $1`, id)
	if err != nil {
		return Beneficiary{}, err
	}
	return row, nil
}

func (s *BeneficiaryStore) ListByUser(ctx context.Context, userID string) ([]Beneficiary, error) {
	var rows []Beneficiary
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+beneficiaryColumns+`
		FROM beneficiaries
		WHERE user_id = $1
		ORDER BY name ASC, id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *BeneficiaryStore) Update(ctx context.Context, id int64, input BeneficiaryInput) (Beneficiary, error) {
	var row Beneficiary
	err := s.db.GetContext(ctx, &row, `
		UPDATE beneficiaries
		SET name = $1, email = $2, phone = $3, relationship = $4
		WHERE id = $5
		RETURNING `+beneficiaryColumns,
		input.Name, input.Email, input.Phone, input.Relationship, id,
	)
	if err != nil {
		return Beneficiary{}, err
	}
	return row, nil
}

func (s *BeneficiaryStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM beneficiaries WHERE id = $1`, id)
	return err
}
