package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"quickpay/internal/ledger"
	"quickpay/internal/services"
	"quickpay/internal/validator"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message,omitempty"`
	Fields  []validator.FieldError `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code string) {
	respondJSON(w, status, errorBody{Error: code})
}

// respondValidation reports invalid_amount when an amount rule failed, so
// bad amounts get the same code whether they fail parsing or a limit.
func respondValidation(w http.ResponseWriter, fields []validator.FieldError) {
	code := "validation_failed"
	for _, field := range fields {
		if field.Tag == "amount" {
			code = "invalid_amount"
			break
		}
	}
	respondJSON(w, http.StatusBadRequest, errorBody{
		Error:   code,
		Message: fields[0].Message,
		Fields:  fields,
	})
}

// decodeJSON reads one JSON object into dest and runs its validate tags.
// It writes the error response itself and reports whether to continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dest); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_payload", Message: err.Error()})
		return false
	}
	if fields := validator.Struct(dest); len(fields) > 0 {
		respondValidation(w, fields)
		return false
	}
	return true
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// Most specific first: the not-found variants all wrap ledger.ErrNotFound.
var errorMappings = []errorMapping{
	{services.ErrSenderNotFound, http.StatusNotFound, "sender_not_found"},
	{services.ErrSenderWalletNotFound, http.StatusNotFound, "wallet_not_found"},
	{services.ErrReceiverNotFound, http.StatusNotFound, "receiver_not_found"},
	{services.ErrReceiverWalletNotFound, http.StatusNotFound, "receiver_wallet_not_found"},
	{services.ErrWalletNotFound, http.StatusNotFound, "wallet_not_found"},
	{services.ErrTransactionNotFound, http.StatusNotFound, "transaction_not_found"},
	{services.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{ledger.ErrNotFound, http.StatusNotFound, "not_found"},
	{ledger.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{ledger.ErrInsufficientFunds, http.StatusBadRequest, "insufficient_funds"},
	{ledger.ErrInvalidAction, http.StatusBadRequest, "invalid_action"},
	{ledger.ErrUnauthorized, http.StatusForbidden, "forbidden"},
	{ledger.ErrStorageConflict, http.StatusConflict, "storage_conflict"},
	{ledger.ErrIDCollision, http.StatusInternalServerError, "id_collision"},
	{services.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{services.ErrAccountInactive, http.StatusForbidden, "account_inactive"},
	{services.ErrUserHasTransactions, http.StatusConflict, "user_has_transactions"},
	{services.ErrCannotDeleteSelf, http.StatusBadRequest, "cannot_delete_self"},
}

// respondServiceError maps a service failure to its stable code. Client
// errors carry the error text as message; server errors are logged and
// reported without detail.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}
		if m.status >= http.StatusInternalServerError {
			h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.String("code", m.code), zap.Error(err))
			respondError(w, m.status, m.code)
			return
		}
		respondJSON(w, m.status, errorBody{Error: m.code, Message: err.Error()})
		return
	}
	h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal")
}

func (h *Handler) respondInternal(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, zap.String("path", r.URL.Path), zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal")
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

// page reads limit and offset, clamping limit to (0, max].
func page(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), defaultLimit)
	if limit == 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, parseInt(query.Get("offset"), 0)
}
