// ABOUTME: Signed OAuth2 state parameter using HS256 JWTs
// ABOUTME: The state carries the initiating session ID so callbacks can't be replayed across clients

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// State errors
var (
	ErrInvalidState = errors.New("invalid state")
	ErrExpiredState = errors.New("state expired")
)

// StateSigner signs and verifies the OAuth2 state parameter.
type StateSigner struct {
	secret []byte
}

// NewStateSigner creates a signer with the given secret.
func NewStateSigner(secret []byte) *StateSigner {
	return &StateSigner{secret: secret}
}

// Generate creates a signed state token bound to the given session ID.
func (s *StateSigner) Generate(sessionID string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": sessionID,
		"iat": now.Unix(),
		"exp": now.Add(expiresIn).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates the state token and returns the session ID it was
// bound to.
func (s *StateSigner) Verify(state string) (string, error) {
	token, err := jwt.Parse(state, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredState
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if !token.Valid {
		return "", ErrInvalidState
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidState
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrInvalidState
	}
	return sub, nil
}
