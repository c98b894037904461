package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/assettrack/internal/rbac"
)

const defaultIssuer = "assettrack"

// Claims are the JWT claims carried by every access token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RevocationList tracks logged-out token ids.
type RevocationList interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	revoked RevocationList
	now     func() time.Time
}

// NewTokenIssuer constructs an issuer. revoked may be nil when logout is not
// wired, in which case every well-formed token is accepted until expiry.
func NewTokenIssuer(secret string, ttl time.Duration, revoked RevocationList) (*TokenIssuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: token secret is not configured")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token ttl must be greater than zero")
	}
	return &TokenIssuer{
		secret:  []byte(secret),
		ttl:     ttl,
		issuer:  defaultIssuer,
		revoked: revoked,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Issue signs a token for user.
func (t *TokenIssuer) Issue(user User) (Token, error) {
	if user.ID == uuid.Nil {
		return Token{}, errors.New("auth: user id is required")
	}
	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

// Verify checks the signature, claims and revocation state of raw and
// returns the principal it identifies.
func (t *TokenIssuer) Verify(ctx context.Context, raw string) (rbac.Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return rbac.Principal{}, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return rbac.Principal{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return rbac.Principal{}, ErrInvalidToken
	}
	if err := t.validateClaims(claims); err != nil {
		return rbac.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return rbac.Principal{}, ErrInvalidToken
	}
	role := rbac.Role(claims.Role)
	if !role.Valid() {
		return rbac.Principal{}, ErrInvalidToken
	}

	if t.revoked != nil {
		revoked, err := t.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return rbac.Principal{}, err
		}
		if revoked {
			return rbac.Principal{}, ErrInvalidToken
		}
	}
	return rbac.Principal{
		UserID:    userID,
		Role:      role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (t *TokenIssuer) validateClaims(claims *Claims) error {
	if claims.Issuer != t.issuer {
		return fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	if strings.TrimSpace(claims.ID) == "" {
		return errors.New("token id missing")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	now := t.now()
	// Allow a small clock skew of 5 seconds when validating issued-at.
	if claims.IssuedAt.Time.After(now.Add(5 * time.Second)) {
		return errors.New("token issued in the future")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}
	return nil
}

var _ rbac.TokenVerifier = (*TokenIssuer)(nil)
