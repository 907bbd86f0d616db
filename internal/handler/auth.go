package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/quillchat/quill-api/internal/model"
	"github.com/quillchat/quill-api/internal/service"
	"github.com/quillchat/quill-api/internal/store"
	"github.com/quillchat/quill-api/pkg/logger"
)

// AuthHandler handles registration and authentication endpoints.
type AuthHandler struct {
	service *service.AuthService
	logger  *logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc *service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service: svc,
		logger:  log,
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.Register(r.Context(), &req)
	if err != nil {
		h.writeAuthError(w, err, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Verify handles POST /auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.Verify(r.Context(), &req); err != nil {
		h.writeAuthError(w, err, "verification failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "email verified successfully",
	})
}

// ResendCode handles POST /auth/resend-code
func (h *AuthHandler) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req model.ResendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.ResendCode(r.Context(), req.Email); err != nil {
		h.writeAuthError(w, err, "failed to resend verification code")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "verification code sent",
	})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		h.writeAuthError(w, err, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ForgotPassword handles POST /auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req model.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		h.writeAuthError(w, err, "failed to process request")
		return
	}

	// Deliberately identical for existing and unknown accounts.
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "if the email exists, a reset code has been sent",
	})
}

// ResetPassword handles POST /auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req model.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.ResetPassword(r.Context(), &req); err != nil {
		h.writeAuthError(w, err, "failed to reset password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "password reset successful",
	})
}

// Logout handles POST /auth/logout. Tokens are stateless; the client just
// discards its copy.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

func (h *AuthHandler) writeAuthError(w http.ResponseWriter, err error, fallback string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeFieldError(w, http.StatusBadRequest, verr.Field, verr.Reason)
	case errors.Is(err, service.ErrEmailExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrNotVerified):
		writeError(w, http.StatusForbidden, "please verify your email before logging in")
	case errors.Is(err, service.ErrAlreadyVerified),
		errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrCodeExpired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	default:
		h.logger.Error(fallback, zap.Error(err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
