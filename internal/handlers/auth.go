package handlers

import (
	"net/http"

	"quickpay/internal/middleware"
	"quickpay/internal/models"
	"quickpay/internal/services"
)

type registerRequest struct {
	FirstName string  `json:"first_name" validate:"required,max=50"`
	LastName  string  `json:"last_name" validate:"required,max=50"`
	Email     string  `json:"email" validate:"required,email,max=120"`
	Password  string  `json:"password" validate:"required,password"`
	Phone     *string `json:"phone" validate:"omitempty,phone"`
	Country   string  `json:"country" validate:"omitempty,max=50"`
	Address   *string `json:"address" validate:"omitempty,max=200"`
	City      *string `json:"city" validate:"omitempty,max=50"`
	ZipCode   *string `json:"zip_code" validate:"omitempty,max=20"`
}

type sessionResponse struct {
	AccessToken string        `json:"access_token"`
	User        models.User   `json:"user"`
	Wallet      models.Wallet `json:"wallet"`
}

func newSessionResponse(session services.Session) sessionResponse {
	return sessionResponse{
		AccessToken: session.AccessToken,
		User:        models.NewUser(session.User),
		Wallet:      models.NewWallet(session.Wallet),
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.accounts.Register(r.Context(), services.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Country:   req.Country,
		Address:   req.Address,
		City:      req.City,
		ZipCode:   req.ZipCode,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, newSessionResponse(session))
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newSessionResponse(session))
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, wallet, err := h.accounts.Profile(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user":   models.NewUser(user),
		"wallet": models.NewWallet(wallet),
	})
}
