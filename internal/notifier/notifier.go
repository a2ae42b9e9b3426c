// Package notifier delivers out-of-band email for the auth flows: password
// reset links to account owners and lockout alerts to the administrator.
// Delivery is fire-and-forget from the caller's point of view; failures are
// logged and never abort the surrounding flow.
package notifier

import (
	"context"
)

// Notifier sends auth-related email
type Notifier interface {
	// SendResetLink delivers a password-reset link carrying the raw token.
	// The raw token appears only in this email and is never persisted.
	SendResetLink(ctx context.Context, email, rawToken string) error

	// SendLockoutAlert tells the administrator that an account has been
	// locked and hands over the unlock token.
	SendLockoutAlert(ctx context.Context, adminEmail, accountEmail, unlockToken string) error
}
