// Package auth issues and verifies the bearer tokens that establish the
// caller's subject identity for every request.
package auth

import (
	"time"

	"github.com/dmitrijs2005/cipherdrive/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the standard registered claims plus the subject id and
// email resolved at login.
type Claims struct {
	jwt.RegisteredClaims
	UserID string
	Email  string
}

// GenerateToken mints an HS256 token for userID valid for validityDuration.
func GenerateToken(userID, email string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID: userID,
		Email:  email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the signature and expiry and returns the claims.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
