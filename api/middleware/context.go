package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type (
	customerIDKey struct{}
	roleKey       struct{}
	requestIDKey  struct{}
)

// CustomerIDFromContext returns the authenticated shopper, or uuid.Nil for
// admin tokens and anonymous requests.
func CustomerIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(customerIDKey{}).(uuid.UUID)
	return id
}

func RoleFromContext(ctx context.Context) enums.Role {
	role, _ := ctx.Value(roleKey{}).(enums.Role)
	return role
}

// RequestIDFromContext returns the id RequestID assigned, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func WithCustomerID(ctx context.Context, customerID uuid.UUID) context.Context {
	return context.WithValue(ctx, customerIDKey{}, customerID)
}

func WithRole(ctx context.Context, role enums.Role) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}
