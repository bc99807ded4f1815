package service

import (
	"testing"
	"time"

	"coop-payments/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-key-for-unit-tests"

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, 24*time.Hour, "test-issuer")

	tokenStr, expiresAt, err := svc.Generate(ports.TokenClaims{
		Subject:       "user-42",
		Role:          ports.RoleCooperativeManager,
		CooperativeID: "coop-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tokenStr)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.Validate(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)
	assert.Equal(t, ports.RoleCooperativeManager, claims.Role)
	assert.Equal(t, "coop-1", claims.CooperativeID)
}

func TestJWTTokenService_AdminWithoutCooperative(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "test-issuer")

	tokenStr, _, err := svc.Generate(ports.TokenClaims{Subject: "admin-1", Role: ports.RoleAdmin})
	require.NoError(t, err)

	claims, err := svc.Validate(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, ports.RoleAdmin, claims.Role)
	assert.Empty(t, claims.CooperativeID)
}

func TestJWTTokenService_ManagerWithoutCooperativeRejected(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "test-issuer")

	tokenStr, _, err := svc.Generate(ports.TokenClaims{Subject: "m-1", Role: ports.RoleCooperativeManager})
	require.NoError(t, err)

	_, err = svc.Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTTokenService_UnknownRole(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "test-issuer")

	tokenStr, _, err := svc.Generate(ports.TokenClaims{Subject: "x", Role: "ROOT"})
	require.NoError(t, err)

	_, err = svc.Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTTokenService_ExpiredToken(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, -1*time.Hour, "test-issuer")

	tokenStr, _, err := svc.Generate(ports.TokenClaims{Subject: "admin", Role: ports.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.Validate(tokenStr)
	assert.Error(t, err, "expired token should fail validation")
}

func TestJWTTokenService_InvalidSignature(t *testing.T) {
	svc1 := NewJWTTokenService("secret-1", 24*time.Hour, "issuer")
	svc2 := NewJWTTokenService("secret-2", 24*time.Hour, "issuer")

	tokenStr, _, err := svc1.Generate(ports.TokenClaims{Subject: "admin", Role: ports.RoleAdmin})
	require.NoError(t, err)

	_, err = svc2.Validate(tokenStr)
	assert.Error(t, err, "token signed with different secret should fail")
}

func TestJWTTokenService_WrongIssuer(t *testing.T) {
	svc1 := NewJWTTokenService(testJWTSecret, time.Hour, "issuer-a")
	svc2 := NewJWTTokenService(testJWTSecret, time.Hour, "issuer-b")

	tokenStr, _, err := svc1.Generate(ports.TokenClaims{Subject: "admin", Role: ports.RoleAdmin})
	require.NoError(t, err)

	_, err = svc2.Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTTokenService_RejectsNoneAlgorithm(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "issuer")

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":  "admin",
		"role": "ADMIN",
		"iss":  "issuer",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	tokenStr, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTTokenService_InvalidTokenString(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, 24*time.Hour, "issuer")

	_, err := svc.Validate("not.a.valid.jwt")
	assert.Error(t, err)

	_, err = svc.Validate("")
	assert.Error(t, err)
}

func TestTokenClaims_CanAccessCooperative(t *testing.T) {
	admin := &ports.TokenClaims{Role: ports.RoleAdmin}
	manager := &ports.TokenClaims{Role: ports.RoleCooperativeManager, CooperativeID: "coop-1"}
	stray := &ports.TokenClaims{Role: ports.RoleCooperativeManager}

	assert.True(t, admin.CanAccessCooperative("coop-9"))
	assert.True(t, manager.CanAccessCooperative("coop-1"))
	assert.False(t, manager.CanAccessCooperative("coop-2"))
	assert.False(t, stray.CanAccessCooperative(""))
}
