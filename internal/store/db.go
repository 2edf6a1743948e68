package store

import (
	"context"
	"database/sql"
	"errors"
)

// ErrDuplicateID is returned by inserts that lost an identifier collision.
// The enclosing unit of work is still usable and may retry with a new id.
var ErrDuplicateID = errors.New("duplicate identifier")

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

type Selecter interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type DB interface {
	Execer
	Getter
	Selecter
}

// Tx is the handle ledger operations receive for one unit of work.
type Tx interface {
	Execer
	Getter
}

func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
