package ledger

import "errors"

// Failure kinds shared by the ledger and the services built on it. Callers
// wrap these with context and match them with errors.Is.
var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrIDCollision       = errors.New("could not allocate a unique identifier")
	ErrStorageConflict   = errors.New("storage conflict")
	ErrInvalidAction     = errors.New("invalid action")
)
