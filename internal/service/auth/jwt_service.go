// Package auth provides optional bearer-token authentication: an access
// password is exchanged for a signed JWT, which then guards the API. The
// deployment is single-operator, so tokens carry no user identity beyond a
// fixed subject.
package auth

import (
	"context"
	"time"
)

// Subject is the fixed subject claim for all issued tokens.
const Subject = "operator"

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed access token.
	GenerateToken(ctx context.Context) (string, error)

	// ValidateToken validates the provided token string and extracts the
	// claims. Returns an error if validation fails (expired, invalid
	// signature, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the validated claims of an issued token.
type Claims struct {
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
