package auth

import "notevault/internal/domain/models"

// JWTVerifier resolves a bearer token to the identity that owns folders and notes.
// The middleware only depends on this interface, so tests can swap in a fake.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	// Returns domain.ErrUnauthorized if the token is invalid, expired, or has an invalid signature.
	VerifyToken(tokenString string) (*models.Claims, error)

	// Close releases any resources held by the verifier (e.g., HTTP connections for JWKS).
	Close() error
}
