package handlers

import (
	"encoding/json"
	"net/http"

	"quickpay/internal/middleware"
	"quickpay/internal/models"
	"quickpay/internal/store"
)

const (
	defaultEntryPage = 50
	maxEntryPage     = 200
)

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	wallet, err := h.wallets.GetByUserID(r.Context(), userID)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "wallet_not_found")
			return
		}
		h.respondInternal(w, r, "load wallet", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"wallet": models.NewWallet(wallet)})
}

type addFundsRequest struct {
	Amount json.Number `json:"amount" validate:"required,amount"`
	Note   string      `json:"note" validate:"max=255"`
}

func (h *Handler) AddFunds(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req addFundsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	result, err := h.transfers.AddFunds(r.Context(), userID, amount, req.Note)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"wallet":      models.NewWallet(result.Wallet),
		"transaction": models.NewTransaction(result.Transaction),
	})
}

// SelfCheck compares the caller's stored balance with the sum of its entries.
func (h *Handler) SelfCheck(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	rows, err := h.wallets.Reconcile(r.Context(), userID)
	if err != nil {
		h.respondInternal(w, r, "self check", err)
		return
	}
	if len(rows) == 0 {
		respondError(w, http.StatusNotFound, "wallet_not_found")
		return
	}
	respondJSON(w, http.StatusOK, models.NewReconciliations(rows)[0])
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	wallet, err := h.wallets.GetByUserID(r.Context(), userID)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "wallet_not_found")
			return
		}
		h.respondInternal(w, r, "load wallet", err)
		return
	}
	limit, offset := page(r, defaultEntryPage, maxEntryPage)
	rows, err := h.entries.ListByWallet(r.Context(), wallet.ID, limit, offset)
	if err != nil {
		h.respondInternal(w, r, "list entries", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"entries": models.NewEntries(rows),
		"count":   len(rows),
	})
}
