package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// AccessTokenPayload is what the identity service hands us to mint a token.
type AccessTokenPayload struct {
	CustomerID uuid.UUID
	Role       enums.Role
	JTI        string
}

// AccessTokenClaims is the bearer token shoppers and admins present.
// Customer tokens always carry a customer id; admin tokens may not.
type AccessTokenClaims struct {
	CustomerID uuid.UUID  `json:"customer_id"`
	Role       enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after jwt's own exp/iss checks.
func (c AccessTokenClaims) Validate() error {
	if !c.Role.IsValid() {
		return fmt.Errorf("invalid role %q", c.Role)
	}
	if c.Role == enums.RoleCustomer && c.CustomerID == uuid.Nil {
		return fmt.Errorf("customer token missing customer id")
	}
	return nil
}

// IsCustomer reports whether the token acts for a shopper.
func (c AccessTokenClaims) IsCustomer() bool {
	return c.Role == enums.RoleCustomer && c.CustomerID != uuid.Nil
}
