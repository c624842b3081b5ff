package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantasylifeleague/healthapi/internal/auth"
)

func TestJWTService_GenerateAndValidateAccessToken(t *testing.T) {
	svc := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
	})

	token, expiresAt, err := svc.GenerateAccessToken("user-42")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.UserID)
	assert.Equal(t, "user-42", claims.Subject)

	userID, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

// Tokens from the league backend only carry user_id and exp.
func TestJWTService_LeagueBackendToken(t *testing.T) {
	key := "shared-league-secret"
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "64f0c2a9e1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)

	svc := auth.NewJWTService(auth.JWTConfig{SigningKey: key})
	userID, err := svc.Authenticate(signed)

	require.NoError(t, err)
	assert.Equal(t, "64f0c2a9e1", userID)
}

func TestJWTService_InvalidToken(t *testing.T) {
	svc := auth.NewJWTService(auth.JWTConfig{SigningKey: "test-secret-key-for-testing-only"})

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "not.a.valid.jwt"},
		{"invalid base64", "xxx.yyy.zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
		})
	}
}

func TestJWTService_MissingUserID(t *testing.T) {
	key := "test-key"
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "someone",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)

	_, err = auth.NewJWTService(auth.JWTConfig{SigningKey: key}).ValidateAccessToken(signed)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestJWTService_Expired(t *testing.T) {
	key := "test-key"
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)

	_, err = auth.NewJWTService(auth.JWTConfig{SigningKey: key}).ValidateAccessToken(signed)
	assert.ErrorIs(t, err, auth.ErrAccessTokenExpired)
}

func TestJWTService_WrongSigningKey(t *testing.T) {
	svc1 := auth.NewJWTService(auth.JWTConfig{SigningKey: "key-one"})
	token, _, err := svc1.GenerateAccessToken("user-1")
	require.NoError(t, err)

	svc2 := auth.NewJWTService(auth.JWTConfig{SigningKey: "key-two"})
	_, err = svc2.ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestJWTService_IssuerAndAudienceWhenConfigured(t *testing.T) {
	svc1 := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-key",
		Issuer:     "league-backend",
		Audience:   "health-api",
	})
	token, _, err := svc1.GenerateAccessToken("user-1")
	require.NoError(t, err)

	_, err = svc1.ValidateAccessToken(token)
	require.NoError(t, err)

	wrongIssuer := auth.NewJWTService(auth.JWTConfig{SigningKey: "test-key", Issuer: "other", Audience: "health-api"})
	_, err = wrongIssuer.ValidateAccessToken(token)
	assert.Error(t, err)

	wrongAudience := auth.NewJWTService(auth.JWTConfig{SigningKey: "test-key", Issuer: "league-backend", Audience: "other"})
	_, err = wrongAudience.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsOtherAlgorithms(t *testing.T) {
	key := "test-key"
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)

	_, err = auth.NewJWTService(auth.JWTConfig{SigningKey: key}).ValidateAccessToken(signed)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}
