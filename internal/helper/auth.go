package helper

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long an issued session token stays valid.
const TokenTTL = time.Hour

var ErrInvalidToken = errors.New("invalid or expired token")

type Auth struct {
	Secret string
}

func SetupAuth(s string) Auth {
	return Auth{
		Secret: s,
	}
}

type TokenClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateToken signs a session token carrying the user's id and email.
// The returned expiry is the absolute instant embedded in the token.
func (a Auth) GenerateToken(userID uint, email string) (string, time.Time, error) {
	if userID == 0 || email == "" {
		return "", time.Time{}, errors.New("required inputs are missing to generate token")
	}

	now := time.Now()
	exp := now.Add(TokenTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	tokenStr, err := token.SignedString([]byte(a.Secret))
	if err != nil {
		return "", time.Time{}, errors.New("unable to sign the token")
	}

	return tokenStr, exp, nil
}

// VerifyToken checks signature and expiry and returns the embedded claims.
// Every failure mode (bad signature, malformed token, expired, wrong
// algorithm) collapses into ErrInvalidToken so callers can't tell them apart.
func (a Auth) VerifyToken(tokenString string) (TokenClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return TokenClaims{}, ErrInvalidToken
	}

	// support both:
	// - "Bearer <token>"
	// - "<token>"
	if strings.HasPrefix(strings.ToLower(tokenString), "bearer ") {
		parts := strings.SplitN(tokenString, " ", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
			return TokenClaims{}, ErrInvalidToken
		}
		tokenString = strings.TrimSpace(parts[1])
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.Secret), nil
	})
	if err != nil || !token.Valid {
		return TokenClaims{}, ErrInvalidToken
	}

	return *claims, nil
}
