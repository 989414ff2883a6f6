package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAuthenticationFailed is returned for missing, malformed, expired or forged tokens.
var ErrAuthenticationFailed = errors.New("authentication failed")

// Principal is the verified identity behind a request or connection.
type Principal struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Claims is the token body issued by the account service.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HMAC-signed access tokens.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier builds a Verifier for the shared signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify validates the token and returns its principal.
func (v *Verifier) Verify(_ context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, fmt.Errorf("%w: empty token", ErrAuthenticationFailed)
	}

	var claims Claims
	parsed, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	if !parsed.Valid {
		return Principal{}, fmt.Errorf("%w: invalid token", ErrAuthenticationFailed)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return Principal{}, fmt.Errorf("%w: token has no subject", ErrAuthenticationFailed)
	}
	return Principal{UserID: userID, Email: claims.Email}, nil
}
