package handlers

import (
	"encoding/json"
	"net/http"

	"quickpay/internal/middleware"
	"quickpay/internal/models"
	"quickpay/internal/services"
	"quickpay/internal/store"

	"github.com/go-chi/chi/v5"
)

const (
	defaultAdminPage = 100
	maxAdminPage     = 100
)

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r, defaultAdminPage, maxAdminPage)
	rows, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		h.respondInternal(w, r, "list users", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"users": models.NewUsers(rows),
		"count": len(rows),
	})
}

// AdminGetUser returns the user with their wallet. A user without a wallet
// is reported with a null wallet.
func (h *Handler) AdminGetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "user_not_found")
			return
		}
		h.respondInternal(w, r, "load user", err)
		return
	}
	body := map[string]any{"user": models.NewUser(user), "wallet": nil}
	wallet, err := h.wallets.GetByUserID(r.Context(), userID)
	switch {
	case err == nil:
		body["wallet"] = models.NewWallet(wallet)
	case !store.IsNotFound(err):
		h.respondInternal(w, r, "load wallet", err)
		return
	}
	respondJSON(w, http.StatusOK, body)
}

type updateUserRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=50"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=50"`
	Phone     *string `json:"phone" validate:"omitempty,phone"`
	Role      *string `json:"role" validate:"omitempty,oneof=user admin"`
	Status    *string `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (h *Handler) AdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.UserIDFromContext(r.Context())
	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.admin.UpdateUser(r.Context(), adminID, chi.URLParam(r, "id"), store.UserUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      req.Role,
		Status:    req.Status,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": models.NewUser(user)})
}

func (h *Handler) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.UserIDFromContext(r.Context())
	if err := h.admin.DeleteUser(r.Context(), adminID, chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) AdminListWallets(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r, defaultAdminPage, maxAdminPage)
	rows, err := h.wallets.List(r.Context(), limit, offset)
	if err != nil {
		h.respondInternal(w, r, "list wallets", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"wallets": models.NewWalletsWithOwner(rows),
		"count":   len(rows),
	})
}

type adjustRequest struct {
	Action string      `json:"action" validate:"required"`
	Amount json.Number `json:"amount" validate:"required,amount"`
	Note   string      `json:"note" validate:"max=255"`
}

// AdminAdjustWallet credits or debits a wallet by id. Unknown actions are
// rejected by the service as invalid_action.
func (h *Handler) AdminAdjustWallet(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.UserIDFromContext(r.Context())
	var req adjustRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	result, err := h.adjustments.Adjust(r.Context(), services.AdjustRequest{
		AdminID:     adminID,
		WalletID:    chi.URLParam(r, "id"),
		Action:      req.Action,
		AmountMinor: amount,
		Note:        req.Note,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"wallet":      models.NewWallet(result.Wallet),
		"transaction": models.NewTransaction(result.Transaction),
	})
}

func (h *Handler) AdminListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r, defaultAdminPage, maxAdminPage)
	rows, err := h.transactions.ListAll(r.Context(), limit, offset)
	if err != nil {
		h.respondInternal(w, r, "list transactions", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transactions": models.NewTransactionDetails(rows),
		"count":        len(rows),
	})
}

func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r, defaultAdminPage, maxAdminPage)
	rows, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		h.respondInternal(w, r, "list audit logs", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"audit_logs": models.NewAuditLogs(rows),
		"count":      len(rows),
	})
}

// Reconcile runs the balance check across every wallet and reports the
// ones that drifted.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rows, err := h.wallets.Reconcile(r.Context(), "")
	if err != nil {
		h.respondInternal(w, r, "reconcile", err)
		return
	}
	report := models.NewReconciliations(rows)
	mismatched := make([]models.Reconciliation, 0)
	for _, row := range report {
		if !row.Balanced {
			mismatched = append(mismatched, row)
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"checked":    len(report),
		"mismatched": mismatched,
	})
}
