package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/common"
)

// Claims holds the registered claims plus the account's own number. The
// json name must match common.PhoneClaim, which clients read unverified.
type Claims struct {
	jwt.RegisteredClaims
	Phone string `json:"phone"`
}

func GenerateToken(phone string, secretKey []byte, validityDuration time.Duration) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", common.ErrorInvalidInput
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   phone,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Phone: phone,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetPhoneFromToken verifies tokenString and returns the number it was
// issued for.
func GetPhoneFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Phone == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Phone, nil
}
