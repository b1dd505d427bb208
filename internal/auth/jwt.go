package auth

import (
	"context"
	"fmt"
	"time"

	"lifeshare/internal/config"
	"lifeshare/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the custom JWT claims, embedding jwt.RegisteredClaims.
// Role travels in the token so handlers can authorize without a user lookup.
type Claims struct {
	UserID uint            `json:"userId"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken issues a new JWT for the given user. Each token carries a
// random jti so it can be individually revoked via the blacklist.
func GenerateToken(user *models.User, authCfg config.AuthConfig) (string, error) {
	jwtID, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate JWT ID: %w", err)
	}

	expirationTime := time.Now().Add(authCfg.JWTExpiry)
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			ID:        jwtID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "lifeshare-server",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(authCfg.JWTSecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return tokenString, nil
}

// ValidateToken verifies the given JWT string and returns its claims.
// If a blacklist is provided, revoked tokens are rejected.
func ValidateToken(ctx context.Context, tokenString string, jwtKey string, blacklist TokenBlacklist) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse or verify JWT: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid JWT")
	}

	if blacklist != nil {
		if claims.ID == "" {
			return nil, fmt.Errorf("JWT is missing the jti claim, cannot check blacklist")
		}
		isRevoked, err := blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			// Reject rather than fail open.
			return nil, fmt.Errorf("failed to check token blacklist: %w", err)
		}
		if isRevoked {
			return nil, fmt.Errorf("JWT has been revoked")
		}
	}

	return claims, nil
}
