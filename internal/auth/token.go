package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cipherchat/cipherchat-back/internal/models"
)

// Claims are the access-token claims: subject (user id), role, iat, exp.
type Claims struct {
	Role models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access tokens and generates
// refresh tokens. Only the SHA-256 digest of a refresh token is ever
// persisted.
type TokenManager struct {
	secret       []byte
	accessExpiry time.Duration
}

func NewTokenManager(secret string, accessExpirySeconds int64) *TokenManager {
	return &TokenManager{
		secret:       []byte(secret),
		accessExpiry: time.Duration(accessExpirySeconds) * time.Second,
	}
}

// GenerateAccessToken creates a signed JWT for the user.
func (tm *TokenManager) GenerateAccessToken(userID uuid.UUID, role models.UserRole) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.accessExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// VerifyAccessToken validates a JWT and returns the subject user id, role
// and expiry time.
func (tm *TokenManager) VerifyAccessToken(tokenString string) (uuid.UUID, models.UserRole, time.Time, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		return uuid.Nil, "", time.Time{}, err
	}
	if !token.Valid {
		return uuid.Nil, "", time.Time{}, fmt.Errorf("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", time.Time{}, fmt.Errorf("invalid subject claim: %w", err)
	}

	return userID, claims.Role, claims.ExpiresAt.Time, nil
}

// GenerateRefreshToken returns a random 32-byte value, URL-safe base64
// without padding.
func GenerateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashData returns the hex-encoded SHA-256 digest of data. Used for
// refresh tokens and file content hashes.
func HashData(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// ExtractTokenFromHeader extracts the JWT from an Authorization header.
func ExtractTokenFromHeader(authHeader string) (string, error) {
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return "", fmt.Errorf("invalid authorization header")
	}
	return authHeader[7:], nil
}
