package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/assettrack/internal/rbac"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("secret", time.Hour, nil)
	require.NoError(t, err)

	user := User{ID: uuid.New(), Role: rbac.RoleAdmin}
	tok, err := issuer.Issue(user)
	require.NoError(t, err)

	p, err := issuer.Verify(context.Background(), tok.Value)
	require.NoError(t, err)
	require.Equal(t, user.ID, p.UserID)
	require.Equal(t, rbac.RoleAdmin, p.Role)
	require.NotEmpty(t, p.TokenID)
	require.WithinDuration(t, tok.ExpiresAt, p.ExpiresAt, time.Second)
}

func TestVerifyRejects(t *testing.T) {
	issuer, err := NewTokenIssuer("secret", time.Hour, nil)
	require.NoError(t, err)
	other, err := NewTokenIssuer("other-secret", time.Hour, nil)
	require.NoError(t, err)

	foreign, err := other.Issue(User{ID: uuid.New(), Role: rbac.RoleUser})
	require.NoError(t, err)
	_, err = issuer.Verify(context.Background(), foreign.Value)
	require.ErrorIs(t, err, ErrInvalidToken)

	expired, err := issuer.Issue(User{ID: uuid.New(), Role: rbac.RoleUser})
	require.NoError(t, err)
	issuer.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, err = issuer.Verify(context.Background(), expired.Value)
	require.ErrorIs(t, err, ErrInvalidToken)
	issuer.now = func() time.Time { return time.Now().UTC() }

	unknownRole := Claims{
		Role: "Root",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    defaultIssuer,
			Subject:   uuid.NewString(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, unknownRole).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = issuer.Verify(context.Background(), raw)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Verify(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer(" ", time.Hour, nil)
	require.Error(t, err)
	_, err = NewTokenIssuer("secret", 0, nil)
	require.Error(t, err)
}

func TestResetTokenHashing(t *testing.T) {
	token, hash, err := newResetToken()
	require.NoError(t, err)
	require.Len(t, token, 64)
	require.Equal(t, hash, hashResetToken(token))
	require.NotEqual(t, token, hash)
}
