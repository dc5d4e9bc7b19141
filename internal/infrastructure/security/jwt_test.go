package security

import (
	"context"
	"testing"
	"time"

	"chat-backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestJWTResolver_Resolve(t *testing.T) {
	r, err := NewJWTResolver(testSecret, "")
	require.NoError(t, err)

	token, exp, err := GenerateToken(testSecret, "", domain.Identity{UserID: "u-1", Email: "a@example.com", Name: "Alice"}, time.Hour)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	id, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &domain.Identity{UserID: "u-1", Email: "a@example.com", Name: "Alice"}, id)
}

func TestJWTResolver_SubjectFallback(t *testing.T) {
	r, err := NewJWTResolver(testSecret, "")
	require.NoError(t, err)

	token := sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
		Subject:   "sub-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	id, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "sub-42", id.UserID)
}

func TestJWTResolver_Rejects(t *testing.T) {
	r, err := NewJWTResolver(testSecret, "issuer-a")
	require.NoError(t, err)

	valid := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Subject:   "u-1",
			Issuer:    "issuer-a",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongIssuer := valid()
	wrongIssuer.Issuer = "issuer-b"

	noExpiry := valid()
	noExpiry.ExpiresAt = nil

	noSubject := valid()
	noSubject.Subject = ""

	cases := map[string]string{
		"empty":           "",
		"garbage":         "not-a-token",
		"wrong signature": sign(t, jwt.SigningMethodHS256, []byte("other"), valid()),
		"expired":         sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired),
		"wrong issuer":    sign(t, jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer),
		"no expiry":       sign(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry),
		"no subject":      sign(t, jwt.SigningMethodHS256, []byte(testSecret), noSubject),
		"hs512":           sign(t, jwt.SigningMethodHS512, []byte(testSecret), valid()),
		"none":            sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid()),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), token)
			assert.ErrorIs(t, err, domain.ErrUnauthenticated)
		})
	}
}

func TestNewJWTResolver_RequiresSecret(t *testing.T) {
	_, err := NewJWTResolver("", "")
	assert.Error(t, err)
}
