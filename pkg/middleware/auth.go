package middleware

import "context"

type contextKeyType string

// userIDKey carries the authenticated user id. Authentication is terminated
// upstream at the API gateway, which forwards identity; services only read
// the key (see RequestLogger) or fall back to the X-User-ID header.
const userIDKey contextKeyType = "user_id"

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}
