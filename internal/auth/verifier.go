package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cipher-arena/internal/config"
	"github.com/cipher-arena/internal/domain"
)

// RoleGamemaster gates administrative operations
const RoleGamemaster = "gamemaster"

// Identity is the verified caller identity extracted from a token.
// Subject is the identity provider's stable player identifier.
type Identity struct {
	Subject string
	Email   string
	Role    string
}

// IsGamemaster reports whether the identity carries the admin role claim
func (i Identity) IsGamemaster() bool {
	return i.Role == RoleGamemaster
}

type claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates identity tokens signed by the external identity
// provider. The engine never issues tokens itself.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a verifier from auth configuration
func NewVerifier(cfg *config.AuthConfig) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("auth secret is not configured")
	}
	return &Verifier{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
	}, nil
}

// Verify parses and validates a bearer token and returns the caller
// identity. Any parse or validation failure maps to ErrUnauthorized.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
	)
	if err != nil {
		return Identity{}, domain.ErrUnauthorized
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Subject == "" {
		return Identity{}, domain.ErrUnauthorized
	}

	return Identity{
		Subject: c.Subject,
		Email:   c.Email,
		Role:    c.Role,
	}, nil
}
