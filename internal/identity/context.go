package identity

import (
	"context"
	"errors"
	"strings"
)

// ErrNotAuthenticated is returned when a request carries no authenticated user.
var ErrNotAuthenticated = errors.New("identity: not authenticated")

type ctxKey string

const userKey ctxKey = "docbook.user"

// User is the authenticated caller as asserted by the identity provider.
type User struct {
	ID    string
	Email string
}

// WithUser stores the authenticated user in context.
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext extracts the user if present.
func UserFromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(userKey).(User)
	return user, ok && strings.TrimSpace(user.ID) != ""
}

// RequireUser returns the authenticated user or ErrNotAuthenticated.
func RequireUser(ctx context.Context) (User, error) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return User{}, ErrNotAuthenticated
	}
	return user, nil
}
