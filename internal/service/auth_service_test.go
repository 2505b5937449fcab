package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preflight/internal/logger"
	"preflight/internal/model"
	"preflight/internal/repository"
)

func newAuth() (*AuthService, *memUserRepo) {
	users := newMemUserRepo()
	return NewAuthService(users, "test-secret", time.Hour, logger.Nop()), users
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	auth, users := newAuth()
	ctx := context.Background()

	resp, err := auth.Register(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	stored, _ := users.GetByID(ctx, resp.UserID)
	require.NotNil(t, stored)
	assert.Equal(t, model.TierFree, stored.Tier)
	assert.NotEqual(t, "correct horse", stored.PasswordHash)

	claims, err := auth.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims.UserID)

	login, err := auth.Login(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, login.UserID)

	_, err = auth.Login(ctx, "ada@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Register(ctx, "ada@example.com", "another password")
	assert.ErrorIs(t, err, repository.ErrEmailTaken)
}

func TestAuth_RegisterRejectsBadInput(t *testing.T) {
	auth, _ := newAuth()
	_, err := auth.Register(context.Background(), "not-an-email", "long enough")
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = auth.Register(context.Background(), "ada@example.com", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestAuth_ValidateToken(t *testing.T) {
	auth, _ := newAuth()

	_, err := auth.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewAuthService(newMemUserRepo(), "other-secret", time.Hour, logger.Nop())
	resp, err := other.issue("u-1")
	require.NoError(t, err)
	_, err = auth.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := auth.issue("u-1")
	require.NoError(t, err)
	_, err = auth.ValidateToken(expired.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &model.UserClaims{UserID: "u-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.ValidateToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuth_Me(t *testing.T) {
	auth, _ := newAuth()
	resp, err := auth.Register(context.Background(), "ada@example.com", "correct horse")
	require.NoError(t, err)

	me, err := auth.Me(context.Background(), resp.UserID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", me.Email)

	_, err = auth.Me(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
