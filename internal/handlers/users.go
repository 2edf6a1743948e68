package handlers

import (
	"net/http"
	"strings"

	"quickpay/internal/models"
	"quickpay/internal/store"
	"quickpay/internal/validator"
)

// LookupUser resolves an email to the id and display name a sender needs.
// Inactive users are reported as not found.
func (h *Handler) LookupUser(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("email")))
	if err := validator.ValidateEmail(email); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_email")
		return
	}
	user, err := h.users.GetByEmail(r.Context(), email)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "user_not_found")
			return
		}
		h.respondInternal(w, r, "lookup user", err)
		return
	}
	if user.Status != store.UserStatusActive {
		respondError(w, http.StatusNotFound, "user_not_found")
		return
	}
	respondJSON(w, http.StatusOK, models.UserLookup{ID: user.ID, Name: user.FullName()})
}
