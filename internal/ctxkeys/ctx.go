package ctxkeys

import (
	"context"

	"github.com/sealdrop/sealdrop/internal/model"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	UserKey contextKey = "user"
	RoleKey contextKey = "role"
)

func User(ctx context.Context) *model.User {
	user, _ := ctx.Value(UserKey).(*model.User)
	return user
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// Role is resolved once by the auth middleware and passed explicitly from
// there; nothing reads role flags from process-wide state.
func Role(ctx context.Context) model.Role {
	role, ok := ctx.Value(RoleKey).(model.Role)
	if !ok {
		return model.RoleUser
	}
	return role
}

func WithRole(ctx context.Context, role model.Role) context.Context {
	return context.WithValue(ctx, RoleKey, role)
}
