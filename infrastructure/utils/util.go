package utils

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"instagram-feed/infrastructure/logger"

	"github.com/golang-jwt/jwt"
)

func GetCurrentTime() time.Time {
	return time.Now().UTC()
}

func GenerateToken(payload map[string]interface{}, secretKey string) (string, error) {
	var claims jwt.MapClaims = payload
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while generate token")
		return "", err
	}
	return tokenString, nil
}

// GenerateAdminToken signs a bearer token for the operator routes.
func GenerateAdminToken(userName, secretKey string, ttl time.Duration) (string, error) {
	now := GetCurrentTime()
	return GenerateToken(map[string]interface{}{
		"iss":       userName,
		"sub":       userName,
		"user_name": userName,
		"role":      "admin",
		"iat":       now.Unix(),
		"exp":       now.Add(ttl).Unix(),
	}, secretKey)
}

// RandomState returns a URL-safe random string for OAuth state values.
func RandomState(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
