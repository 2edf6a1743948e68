package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"quickpay/internal/middleware"
	"quickpay/internal/models"
	"quickpay/internal/services"
	"quickpay/internal/store"

	"github.com/go-chi/chi/v5"
)

type sendRequest struct {
	ReceiverID string      `json:"receiver_id" validate:"required"`
	Amount     json.Number `json:"amount" validate:"required,amount"`
	Note       string      `json:"note" validate:"max=255"`
}

func (h *Handler) SendMoney(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req sendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	result, err := h.transfers.Send(r.Context(), services.SendRequest{
		SenderID:    userID,
		ReceiverID:  strings.TrimSpace(req.ReceiverID),
		AmountMinor: amount,
		Note:        req.Note,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"transaction": models.NewTransactionDetail(result.Transaction),
		"wallet":      models.NewWallet(result.Wallet),
	})
}

// ListTransactions treats an unknown type filter as all.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	direction := r.URL.Query().Get("type")
	switch direction {
	case store.DirectionSent, store.DirectionReceived:
	default:
		direction = store.DirectionAll
	}
	limit := parseInt(r.URL.Query().Get("limit"), 0)
	offset := parseInt(r.URL.Query().Get("offset"), 0)
	rows, err := h.transfers.ListTransactions(r.Context(), userID, direction, limit, offset)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transactions": models.NewTransactionDetails(rows),
		"count":        len(rows),
	})
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	row, err := h.transfers.GetTransaction(r.Context(), userID, chi.URLParam(r, "transactionID"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transaction": models.NewTransactionDetail(row)})
}
