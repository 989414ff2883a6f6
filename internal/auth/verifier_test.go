package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims() Claims {
	return Claims{
		UserID: "user-1",
		Email:  "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestVerifyAcceptsValidToken(t *testing.T) {
	v := NewVerifier(secret)

	p, err := v.Verify(context.Background(), sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims()))
	require.NoError(t, err)
	require.Equal(t, Principal{UserID: "user-1", Email: "ada@example.com"}, p)
}

func TestVerifyFallsBackToSubject(t *testing.T) {
	claims := validClaims()
	claims.UserID = ""
	claims.Subject = "user-from-sub"

	p, err := NewVerifier(secret).Verify(context.Background(), sign(t, jwt.SigningMethodHS256, []byte(secret), claims))
	require.NoError(t, err)
	require.Equal(t, "user-from-sub", p.UserID)
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier(secret)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	noSubject := validClaims()
	noSubject.UserID = ""

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"wrong secret": sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims()),
		"expired":      sign(t, jwt.SigningMethodHS256, []byte(secret), expired),
		"no expiry":    sign(t, jwt.SigningMethodHS256, []byte(secret), noExpiry),
		"no subject":   sign(t, jwt.SigningMethodHS256, []byte(secret), noSubject),
		"none alg":     sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims()),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), token)
			require.ErrorIs(t, err, ErrAuthenticationFailed)
		})
	}
}
