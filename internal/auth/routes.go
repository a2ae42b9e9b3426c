package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middleware is an interface for HTTP middleware
type Middleware func(http.Handler) http.Handler

// RegisterRoutes registers all authentication routes with the Chi router.
// Public routes: /login, /forgot-password, /reset-password, /unlock-account.
// Protected routes: /logout, /verify-auth. /register additionally requires
// the admin role. loginLimiter, when non-nil, throttles the routes that
// accept credentials or trigger outbound mail.
func RegisterRoutes(r chi.Router, handler *AuthHandler, authMiddleware, adminMiddleware, loginLimiter Middleware) {
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if loginLimiter != nil {
				r.Use(loginLimiter)
			}
			r.Post("/login", handler.Login)
			r.Post("/forgot-password", handler.ForgotPassword)
		})
		r.Post("/reset-password", handler.ResetPassword)
		r.Get("/unlock-account", handler.UnlockAccount)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/logout", handler.Logout)
			r.Get("/verify-auth", handler.VerifyAuth)

			r.Group(func(r chi.Router) {
				r.Use(adminMiddleware)
				r.Post("/register", handler.Register)
			})
		})
	})
}
