package services_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irgordon/locker/api/internal/core/domain"
	"github.com/irgordon/locker/api/internal/core/services"
)

const (
	testSecret = "super-secret-key-for-testing-purposes-1234567890"
)

func TestTokenService_GenerateTokenPair(t *testing.T) {
	// 1. Setup
	tokenService := services.NewTokenService(testSecret)
	userID := uuid.New()
	user := &domain.User{
		ID:    userID,
		Email: "test@locker.dev",
	}

	// 2. Execution
	accessTokenString, refreshTokenString, err := tokenService.GenerateTokenPair(user)

	// 3. Verification
	require.NoError(t, err)
	assert.NotEmpty(t, accessTokenString)
	assert.NotEmpty(t, refreshTokenString)

	// 3a. Verify Access Token Claims
	token, err := jwt.ParseWithClaims(accessTokenString, &services.LockerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(*services.LockerClaims)
	require.True(t, ok)

	assert.Equal(t, "access", claims.TokenType)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "locker-api", claims.Issuer)
	assert.Equal(t, "test@locker.dev", claims.Email)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)

	// 3b. Verify Refresh Token Claims
	refreshToken, err := jwt.ParseWithClaims(refreshTokenString, &services.LockerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	require.True(t, refreshToken.Valid)

	refreshClaims, ok := refreshToken.Claims.(*services.LockerClaims)
	require.True(t, ok)

	assert.Equal(t, "refresh", refreshClaims.TokenType)
	assert.Equal(t, userID.String(), refreshClaims.Subject)
	assert.NotEmpty(t, refreshClaims.ID) // JTI should be present
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), refreshClaims.ExpiresAt.Time, 5*time.Second)
}

func TestTokenService_VerifyRefreshToken(t *testing.T) {
	tokenService := services.NewTokenService(testSecret)
	userID := uuid.New()
	user := &domain.User{ID: userID, Email: "test@locker.dev"}

	accessToken, refreshToken, err := tokenService.GenerateTokenPair(user)
	require.NoError(t, err)

	t.Run("Valid Refresh Token", func(t *testing.T) {
		uid, err := tokenService.VerifyRefreshToken(refreshToken)
		require.NoError(t, err)
		assert.Equal(t, userID, uid)
	})

	t.Run("Invalid: Use Access Token as Refresh Token", func(t *testing.T) {
		uid, err := tokenService.VerifyRefreshToken(accessToken)
		assert.Error(t, err)
		assert.Equal(t, uuid.Nil, uid)
		assert.Contains(t, err.Error(), "invalid token type")
	})

	t.Run("Invalid: Wrong Secret", func(t *testing.T) {
		otherService := services.NewTokenService("wrong-secret-key")
		_, otherRefresh, _ := otherService.GenerateTokenPair(user)

		uid, err := tokenService.VerifyRefreshToken(otherRefresh)
		assert.Error(t, err)
		assert.Equal(t, uuid.Nil, uid)
		assert.Contains(t, err.Error(), "signature is invalid")
	})

	t.Run("Invalid: Malformed Token", func(t *testing.T) {
		uid, err := tokenService.VerifyRefreshToken("not.a.valid.token")
		assert.Error(t, err)
		assert.Equal(t, uuid.Nil, uid)
	})
}

func TestTokenService_VerifyAccessToken(t *testing.T) {
	tokenService := services.NewTokenService(testSecret)
	user := &domain.User{ID: uuid.New(), Email: "test@locker.dev"}

	accessToken, refreshToken, err := tokenService.GenerateTokenPair(user)
	require.NoError(t, err)

	claims, err := tokenService.VerifyAccessToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)

	_, err = tokenService.VerifyAccessToken(refreshToken)
	assert.ErrorContains(t, err, "invalid token type")
}
