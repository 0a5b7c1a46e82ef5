package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the only supported token shape for the ops API. Tokens are
// minted out-of-band; this service only verifies them.
type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"user_id"`
	Role   string `json:"role"`
}
