package authUtils

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"

	"civicx-be/models"
)

// GenerateToken signs a JWT for the given user. The role travels in the
// claims; it is immutable post-registration so it cannot go stale.
func GenerateToken(secret, userID string, role models.UserRole) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT secret is not configured")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     time.Now().Add(time.Hour * 72).Unix(), // Token expires in 72 hours
	})

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}
