package httpapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/gemdesk/gemdesk/internal/domain/account"
)

type authContextKey string

const authUserKey authContextKey = "authUser"

// AuthUser represents the authenticated account in context.
type AuthUser struct {
	Username  string
	Role      account.Role
	SessionID uuid.UUID
}

func (u AuthUser) IsAdmin() bool { return u.Role == account.RoleAdmin }

func withAuthUser(ctx context.Context, u *AuthUser) context.Context {
	if u == nil {
		return ctx
	}
	return context.WithValue(ctx, authUserKey, u)
}

func authUserFromContext(ctx context.Context) *AuthUser {
	if v, ok := ctx.Value(authUserKey).(*AuthUser); ok {
		return v
	}
	return nil
}
