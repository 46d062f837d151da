package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/a7al3le-dotcom/chat7ob/errors"
)

// TokenCodec issues and verifies durable session tokens.
// A token is a signed JWT carrying a random jti; the random jti makes each
// issued token unique even for the same username. Tokens carry no expiry:
// their lifetime is governed by the presence grace window, not by the codec.
type TokenCodec struct {
	secret []byte
	issuer string
}

func NewTokenCodec(secret, issuer string) TokenCodec {
	return TokenCodec{secret: []byte(secret), issuer: issuer}
}

// SessionClaims is the data stored inside a session token.
type SessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issue creates a signed session token for a participant.
func (c TokenCodec) Issue(username string) (string, error) {
	claims := &SessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(time.Now()),
			Issuer:   c.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify parses and validates the signature of a session token.
// A valid signature is necessary but not sufficient for restoration:
// the session store decides whether the token still maps to a participant.
func (c TokenCodec) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, errors.ErrSessionNotFound
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.ErrSessionNotFound
	}
	return claims, nil
}
