package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ttkdelivery/ttk-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	Rating *enums.StarRating
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID uuid.UUID        `json:"user_id"`
	Role   enums.UserRole   `json:"role"`
	Rating *enums.StarRating `json:"rating,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token bearer holds the admin role.
func (c AccessTokenClaims) IsAdmin() bool {
	return c.Role == enums.UserRoleAdmin
}

// IsDriver reports whether the token bearer holds the driver role.
func (c AccessTokenClaims) IsDriver() bool {
	return c.Role == enums.UserRoleDriver
}
