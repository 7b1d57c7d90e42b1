package common

import (
	"context"
)

// ContextKey represents a context key type
type ContextKey string

// Context keys
const (
	ContextKeyUserID   ContextKey = "user_id"
	ContextKeyAuthMode ContextKey = "auth_mode"
)

// WithUserID adds user ID to context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(ContextKeyUserID).(string)
	return userID, ok && userID != ""
}

// WithAuthMode records how the caller was authenticated ("jwt", "header", "token").
func WithAuthMode(ctx context.Context, mode string) context.Context {
	return context.WithValue(ctx, ContextKeyAuthMode, mode)
}

// GetAuthMode returns the authentication mode recorded on ctx.
func GetAuthMode(ctx context.Context) string {
	mode, _ := ctx.Value(ContextKeyAuthMode).(string)
	return mode
}
