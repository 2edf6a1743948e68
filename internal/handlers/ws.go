package handlers

import (
	"errors"
	"net/http"
	"strings"

	"quickpay/internal/auth"
	"quickpay/internal/store"
)

// WSBalances authenticates before the upgrade. Browsers cannot set headers
// on a websocket handshake, so the token may also come from ?token=.
func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		header := r.Header.Get("Authorization")
		if scheme, value, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			token = strings.TrimSpace(value)
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing_authorization")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			respondError(w, http.StatusUnauthorized, "token_expired")
			return
		}
		respondError(w, http.StatusUnauthorized, "invalid_token")
		return
	}
	access, err := h.access.GetAccess(r.Context(), claims.UserID)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h.respondInternal(w, r, "load access", err)
		return
	}
	if !access.IsActive() {
		respondError(w, http.StatusForbidden, "account_inactive")
		return
	}
	h.socket.Serve(w, r, claims.UserID)
}
