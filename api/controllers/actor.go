package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// customerID returns the shopper behind the request. Admin tokens carry no
// customer and cannot use shopper routes.
func customerID(r *http.Request) (uuid.UUID, error) {
	id := middleware.CustomerIDFromContext(r.Context())
	if id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "customer token required")
	}
	return id, nil
}

func actorFrom(r *http.Request) orders.Actor {
	return orders.Actor{
		CustomerID: middleware.CustomerIDFromContext(r.Context()),
		Role:       middleware.RoleFromContext(r.Context()),
	}
}
