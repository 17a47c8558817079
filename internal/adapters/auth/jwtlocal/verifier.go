// Package jwtlocal verifica tokens HS256 firmados con una clave compartida.
// Sirve para instalaciones sin Odin (clínica única, red local).
package jwtlocal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vet-clinic-records/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSigningKey = errors.New("jwt signing key is empty")
	ErrTokenEmpty   = errors.New("token is empty")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims del token emitido para el staff.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
	Role     string `json:"role,omitempty"`
}

type Verifier struct {
	key    []byte
	issuer string
}

// NewVerifier: issuer vacío = no se valida.
func NewVerifier(signingKey, issuer string) (*Verifier, error) {
	if strings.TrimSpace(signingKey) == "" {
		return nil, ErrNoSigningKey
	}
	return &Verifier{key: []byte(signingKey), issuer: strings.TrimSpace(issuer)}, nil
}

func (v *Verifier) Verify(_ context.Context, token string) (auth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return auth.Claims{}, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}

	return auth.Claims{
		UserID:   claims.Subject,
		Email:    claims.Email,
		TenantID: claims.TenantID,
		Role:     strings.ToLower(strings.TrimSpace(claims.Role)),
	}, nil
}

// Sign emite un token; lo usa el comando de CLI y los tests.
func (v *Verifier) Sign(c Claims) (string, error) {
	if v.issuer != "" && c.Issuer == "" {
		c.Issuer = v.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.key)
}

var _ auth.AuthVerifier = (*Verifier)(nil)
