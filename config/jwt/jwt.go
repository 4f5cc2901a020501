package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

const Issuer = "attentus"

var ErrInvalidToken = errors.New("invalid token")

var (
	secret []byte
	ttl    = 7 * 24 * time.Hour
)

// Init sets the signing secret and token lifetime. It is called once at startup.
func Init(signingSecret string, lifetime time.Duration) {
	secret = []byte(signingSecret)
	if lifetime > 0 {
		ttl = lifetime
	}
}

/*
* Sign an HS256 token whose subject is the doctor id
* Expiry is now + configured lifetime
 */
func GenerateJWT(doctorID string) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret not initialised")
	}
	now := time.Now()
	claims := gojwt.RegisteredClaims{
		Subject:   doctorID,
		Issuer:    Issuer,
		IssuedAt:  gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("while signing token: %w", err)
	}
	return token, nil
}

// ParseJWT validates signature, expiry and issuer and returns the doctor id.
func ParseJWT(tokenString string) (string, error) {
	claims := &gojwt.RegisteredClaims{}
	token, err := gojwt.ParseWithClaims(tokenString, claims, func(t *gojwt.Token) (interface{}, error) {
		return secret, nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithIssuer(Issuer),
		gojwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
