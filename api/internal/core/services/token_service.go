package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/irgordon/locker/api/internal/core/domain"
)

const (
	tokenIssuer     = "locker-api"
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

// LockerClaims holds the stateless authorization data
type LockerClaims struct {
	Email     string `json:"email,omitempty"`
	TokenType string `json:"token_type"` // 🛡️ Distinguish between 'access' and 'refresh'
	jwt.RegisteredClaims
}

type TokenService struct {
	secret []byte
	now    func() time.Time
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret), now: time.Now}
}

// GenerateTokenPair mints both the short-lived access token and the long-lived refresh token
func (s *TokenService) GenerateTokenPair(user *domain.User) (string, string, error) {
	now := s.now()

	// 1. Access Token (15 Minutes)
	accessClaims := LockerClaims{
		Email:     user.Email,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	signedAccess, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign access token: %w", err)
	}

	// 2. Refresh Token (7 Days) - Only contains the Subject ID
	refreshClaims := LockerClaims{
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(refreshTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			ID:        uuid.New().String(),
		},
	}
	signedRefresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return signedAccess, signedRefresh, nil
}

// VerifyAccessToken validates an access token and returns its claims
func (s *TokenService) VerifyAccessToken(tokenString string) (*LockerClaims, error) {
	return s.verify(tokenString, "access")
}

// VerifyRefreshToken validates the signature, expiry, and token type
func (s *TokenService) VerifyRefreshToken(tokenString string) (uuid.UUID, error) {
	claims, err := s.verify(tokenString, "refresh")
	if err != nil {
		return uuid.Nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("malformed subject claim")
	}
	return userID, nil
}

func (s *TokenService) verify(tokenString, tokenType string) (*LockerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &LockerClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 🛡️ Zero-Trust: Force the signing method check
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("invalid token signature or expired: %w", err)
	}

	claims, ok := token.Claims.(*LockerClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	// 🛡️ Explicitly prevent an access token from being used as a refresh token and vice versa
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("invalid token type: expected %s", tokenType)
	}
	return claims, nil
}
