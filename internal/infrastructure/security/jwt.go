package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat-backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by access tokens. user_id wins over sub when both are set.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTResolver verifies HS256 bearer tokens issued by the identity provider.
type JWTResolver struct {
	secretKey []byte
	issuer    string
}

var _ domain.IdentityResolver = (*JWTResolver)(nil)

// NewJWTResolver returns a resolver for secret. When issuer is non-empty the
// iss claim must match it.
func NewJWTResolver(secret, issuer string) (*JWTResolver, error) {
	if secret == "" {
		return nil, errors.New("security: jwt secret is required")
	}
	return &JWTResolver{secretKey: []byte(secret), issuer: issuer}, nil
}

// Resolve maps a raw token to an Identity. Every failure wraps
// domain.ErrUnauthenticated.
func (j *JWTResolver) Resolve(_ context.Context, credential string) (*domain.Identity, error) {
	if credential == "" {
		return nil, fmt.Errorf("%w: missing token", domain.ErrUnauthenticated)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(credential, claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return j.secretKey, nil
		}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthenticated)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: token has no user id", domain.ErrUnauthenticated)
	}
	return &domain.Identity{
		UserID: userID,
		Email:  claims.Email,
		Name:   claims.Name,
	}, nil
}

// GenerateToken signs an HS256 token for identity. It backs the dev login of
// chat-cli and tests; production tokens come from the identity provider.
func GenerateToken(secret, issuer string, identity domain.Identity, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	claims := &Claims{
		UserID: identity.UserID,
		Email:  identity.Email,
		Name:   identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   identity.UserID,
			Issuer:    issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString([]byte(secret))
	return tokenStr, claims.ExpiresAt.Time, err
}
