package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	appctx "github.com/docsflow/backend/internal/context"
)

// APIResponse represents the standard API response format
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError represents the error detail in API response
type APIError struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest represents the forgot-password request payload
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

// ResetPasswordRequest represents the reset-password request payload
type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// AuthHandler handles HTTP requests for authentication endpoints
type AuthHandler struct {
	authService *AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(authService *AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// Login handles credential verification and session issuance
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	response, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			h.writeError(w, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password", nil)
		case errors.Is(err, ErrAccountLocked):
			h.writeError(w, http.StatusForbidden, CodeAccountLocked, "Account locked. Contact your administrator.", nil)
		default:
			h.writeInternalError(w)
		}
		return
	}

	h.writeSuccess(w, http.StatusOK, response)
}

// Logout revokes the presented bearer token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := appctx.ExtractToken(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, CodeAuthTokenMissing, "Authorization header is required", nil)
		return
	}

	if err := h.authService.Logout(r.Context(), token); err != nil {
		h.writeInternalError(w)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

// ForgotPassword starts the self-service reset flow. The acknowledgement is
// identical whether or not the email exists.
// POST /api/v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		h.writeInternalError(w)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]string{
		"message": resetAckMessage,
	})
}

// ResetPassword completes the reset flow with a raw token and new password
// POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	err := h.authService.ResetPassword(r.Context(), req.Token, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, ErrPasswordMismatch):
			h.writeError(w, http.StatusBadRequest, CodePasswordMismatch, "Passwords do not match", nil)
		case errors.Is(err, ErrInvalidResetToken):
			h.writeError(w, http.StatusBadRequest, CodeInvalidResetToken, "Invalid or expired token. Please request a new one.", nil)
		default:
			h.writeInternalError(w)
		}
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]string{
		"message": "Password updated successfully",
	})
}

// UnlockAccount consumes an administrator unlock token
// GET /api/v1/auth/unlock-account?token=...
func (h *AuthHandler) UnlockAccount(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "token query parameter is required", nil)
		return
	}

	result, err := h.authService.UnlockAccount(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidUnlockToken):
			h.writeError(w, http.StatusBadRequest, CodeInvalidUnlockToken, "Invalid or expired unlock token", nil)
		case errors.Is(err, ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, CodeAccountNotFound, "Account not found", nil)
		default:
			h.writeInternalError(w)
		}
		return
	}

	message := "Account unlocked successfully"
	if !result.WasLocked {
		message = "Account was not locked"
	}

	h.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"message":    message,
		"was_locked": result.WasLocked,
	})
}

// Register creates a new account. Route guard restricts this to admins.
// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	account, err := h.authService.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailExists):
			h.writeError(w, http.StatusConflict, CodeEmailExists, "An account with this email already exists", nil)
		case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrInvalidRole):
			h.writeError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		default:
			h.writeInternalError(w)
		}
		return
	}

	h.writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"account": account,
	})
}

// VerifyAuth echoes the authenticated account behind a valid session
// GET /api/v1/auth/verify-auth
func (h *AuthHandler) VerifyAuth(w http.ResponseWriter, r *http.Request) {
	accountID, ok := appctx.ExtractAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, CodeAuthTokenInvalid, "Invalid or expired token", nil)
		return
	}

	account, err := h.authService.GetAccount(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			h.writeError(w, http.StatusUnauthorized, CodeAuthTokenInvalid, "Invalid or expired token", nil)
			return
		}
		h.writeInternalError(w)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"account":       account,
	})
}

// decodeAndValidate decodes the JSON body into dst and runs struct
// validation, writing the error response itself on failure.
func (h *AuthHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		details := make(map[string][]string)
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			for _, fe := range validationErrors {
				field := fe.Field()
				details[field] = append(details[field], "failed on the '"+fe.Tag()+"' rule")
			}
		}
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Request validation failed", details)
		return false
	}

	return true
}

// writeSuccess writes a successful JSON response
func (h *AuthHandler) writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	json.NewEncoder(w).Encode(response)
}

// writeError writes an error JSON response
func (h *AuthHandler) writeError(w http.ResponseWriter, statusCode int, code, message string, details map[string][]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now().UTC(),
	}

	json.NewEncoder(w).Encode(response)
}

// writeInternalError writes the generic dependency-failure response. Clients
// must be able to tell an outage apart from bad credentials.
func (h *AuthHandler) writeInternalError(w http.ResponseWriter) {
	h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
}
