package handlers

import (
	"net/http"
	"strings"

	"quickpay/internal/middleware"
	"quickpay/internal/models"
	"quickpay/internal/store"

	"github.com/go-chi/chi/v5"
)

type beneficiaryRequest struct {
	Name         string  `json:"name" validate:"required,max=100"`
	Email        string  `json:"email" validate:"required,email,max=120"`
	Phone        *string `json:"phone" validate:"omitempty,phone"`
	Relationship *string `json:"relationship" validate:"omitempty,max=50"`
}

func (req beneficiaryRequest) input() store.BeneficiaryInput {
	return store.BeneficiaryInput{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        req.Phone,
		Relationship: req.Relationship,
	}
}

func (h *Handler) ListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	rows, err := h.beneficiaries.ListByUser(r.Context(), userID)
	if err != nil {
		h.respondInternal(w, r, "list beneficiaries", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"beneficiaries": models.NewBeneficiaries(rows)})
}

func (h *Handler) CreateBeneficiary(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req beneficiaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	row, err := h.beneficiaries.Create(r.Context(), userID, req.input())
	if err != nil {
		h.respondInternal(w, r, "create beneficiary", err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"beneficiary": models.NewBeneficiary(row)})
}

// ownedBeneficiary loads the {id} beneficiary and checks it belongs to the
// caller. It writes the error response itself.
func (h *Handler) ownedBeneficiary(w http.ResponseWriter, r *http.Request) (store.Beneficiary, bool) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id")
		return store.Beneficiary{}, false
	}
	row, err := h.beneficiaries.GetByID(r.Context(), id)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "beneficiary_not_found")
			return store.Beneficiary{}, false
		}
		h.respondInternal(w, r, "load beneficiary", err)
		return store.Beneficiary{}, false
	}
	userID, _ := middleware.UserIDFromContext(r.Context())
	if row.UserID != userID {
		respondError(w, http.StatusForbidden, "forbidden")
		return store.Beneficiary{}, false
	}
	return row, true
}

func (h *Handler) GetBeneficiary(w http.ResponseWriter, r *http.Request) {
	row, ok := h.ownedBeneficiary(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"beneficiary": models.NewBeneficiary(row)})
}

func (h *Handler) UpdateBeneficiary(w http.ResponseWriter, r *http.Request) {
	row, ok := h.ownedBeneficiary(w, r)
	if !ok {
		return
	}
	var req beneficiaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := h.beneficiaries.Update(r.Context(), row.ID, req.input())
	if err != nil {
		h.respondInternal(w, r, "update beneficiary", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"beneficiary": models.NewBeneficiary(updated)})
}

func (h *Handler) DeleteBeneficiary(w http.ResponseWriter, r *http.Request) {
	row, ok := h.ownedBeneficiary(w, r)
	if !ok {
		return
	}
	if err := h.beneficiaries.Delete(r.Context(), row.ID); err != nil {
		h.respondInternal(w, r, "delete beneficiary", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
