package handlers

import (
	"encoding/json"
	"errors"
	"strconv"

	"quickpay/internal/ledger"
	"quickpay/internal/money"
)

var errInvalidID = errors.New("invalid id")

// parseAmountMinor accepts a JSON number or a numeric string with at most
// two decimals.
func parseAmountMinor(raw json.Number) (int64, error) {
	amount, err := money.ParseMinor(raw.String())
	if err != nil || amount <= 0 {
		return 0, ledger.ErrInvalidAmount
	}
	return amount, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}
