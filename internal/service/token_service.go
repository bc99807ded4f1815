package service

import (
	"errors"
	"fmt"
	"time"

	"coop-payments/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

// accessClaims is the JWT payload issued to administrators and cooperative managers.
type accessClaims struct {
	Role          string `json:"role"`
	CooperativeID string `json:"cooperative_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTTokenService implements ports.TokenService using HS256 JWT.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewJWTTokenService creates a new JWT token service.
func NewJWTTokenService(secret string, expiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// Generate signs a token carrying the caller's role and cooperative scope.
func (s *JWTTokenService) Generate(claims ports.TokenClaims) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Role:          string(claims.Role),
		CooperativeID: claims.CooperativeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return signed, expiresAt, nil
}

// Validate parses and validates a JWT token, returning the claims.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	if claims.Subject == "" {
		return nil, errors.New("missing subject claim")
	}

	role := ports.Role(claims.Role)
	switch role {
	case ports.RoleAdmin:
	case ports.RoleCooperativeManager:
		if claims.CooperativeID == "" {
			return nil, errors.New("cooperative manager token without cooperative_id")
		}
	default:
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}

	return &ports.TokenClaims{
		Subject:       claims.Subject,
		Role:          role,
		CooperativeID: claims.CooperativeID,
	}, nil
}
