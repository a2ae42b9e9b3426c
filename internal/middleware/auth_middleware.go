package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/docsflow/backend/internal/auth"
	appctx "github.com/docsflow/backend/internal/context"
	"github.com/docsflow/backend/internal/repository"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     ErrorDetail `json:"error"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AuthMiddleware guards protected routes. A request passes only when its
// bearer token has a valid signature, is unexpired, and has not been revoked.
type AuthMiddleware struct {
	authService *auth.AuthService
}

// NewAuthMiddleware creates a new AuthMiddleware instance
func NewAuthMiddleware(authService *auth.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// Authenticate validates the session token from the Authorization header
// and injects the account identity into the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.writeError(w, http.StatusUnauthorized, auth.CodeAuthTokenMissing, "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.writeError(w, http.StatusUnauthorized, auth.CodeAuthTokenInvalid, "Invalid authorization header format")
			return
		}

		tokenString := parts[1]
		if tokenString == "" {
			m.writeError(w, http.StatusUnauthorized, auth.CodeAuthTokenInvalid, "Token is empty")
			return
		}

		claims, err := m.authService.VerifySession(r.Context(), tokenString)
		if err != nil {
			// A revocation-store outage is not the caller's fault.
			if errors.Is(err, auth.ErrRevocationUnavailable) {
				m.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
				return
			}
			m.writeError(w, http.StatusUnauthorized, auth.CodeAuthTokenInvalid, "Invalid or expired token")
			return
		}

		accountID, err := claims.AccountID()
		if err != nil {
			m.writeError(w, http.StatusUnauthorized, auth.CodeAuthTokenInvalid, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), appctx.AccountIDKey, accountID)
		ctx = context.WithValue(ctx, appctx.RoleKey, claims.Role)
		ctx = context.WithValue(ctx, appctx.TokenKey, tokenString)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects authenticated requests whose account is not an admin.
// Must be mounted behind Authenticate.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := appctx.ExtractRole(r.Context())
		if !ok || role != repository.RoleAdmin {
			m.writeError(w, http.StatusForbidden, "ADMIN_REQUIRED", "Access denied. Admin role required.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeError writes a JSON error response
func (m *AuthMiddleware) writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now().UTC(),
	}

	json.NewEncoder(w).Encode(response)
}
