package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"nutrilog/internal/apperror"
	"nutrilog/internal/auth"
)

type AuthHandler struct {
	Users    auth.Users
	JWT      *auth.JWT
	Validate *validator.Validate
	Log      *zap.Logger
}

type registerReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Email = auth.NormalizeEmail(req.Email)
	if err := h.Validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, apperror.CustomValidationError(err))
		return
	}

	u, err := h.Users.Create(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrEmailTaken) {
		http.Error(w, "email already used", http.StatusConflict)
		return
	}
	if err != nil {
		h.Log.Error("register", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	h.issue(w, u.ID, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, apperror.CustomValidationError(err))
		return
	}

	u, err := h.Users.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.Log.Error("login", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	h.issue(w, u.ID, http.StatusOK)
}

func (h *AuthHandler) issue(w http.ResponseWriter, userID uint64, code int) {
	token, err := h.JWT.Sign(userID)
	if err != nil {
		h.Log.Error("sign token", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, code, map[string]any{"token": token})
}
