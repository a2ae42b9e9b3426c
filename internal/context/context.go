package context

import (
	"context"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// AccountIDKey is the context key for the authenticated account id
	AccountIDKey ContextKey = "account_id"
	// RoleKey is the context key for the authenticated account role
	RoleKey ContextKey = "role"
	// TokenKey is the context key for the raw bearer token of the request
	TokenKey ContextKey = "token"
)

// ExtractAccountID extracts the account id from the request context
func ExtractAccountID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(AccountIDKey).(int64)
	return id, ok
}

// ExtractRole extracts the account role from the request context
func ExtractRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

// ExtractToken extracts the raw bearer token from the request context
func ExtractToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}
