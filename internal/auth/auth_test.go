package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "cocinarte/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestVerifyRoundTrip(t *testing.T) {
	token, err := Sign(secret, "authenticated", Identity{UserID: "u-1", Email: "Chef@Cocinarte.com"}, time.Minute)
	require.NoError(t, err)

	id, err := NewTokenVerifier(secret, "authenticated").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", id.UserID)
	assert.Equal(t, "chef@cocinarte.com", id.Email)
}

func TestVerifyRejects(t *testing.T) {
	valid, err := Sign(secret, "", Identity{UserID: "u-1", Email: "a@b.c"}, time.Minute)
	require.NoError(t, err)
	expired, err := Sign(secret, "", Identity{UserID: "u-1", Email: "a@b.c"}, -time.Minute)
	require.NoError(t, err)
	otherKey, err := Sign("other", "", Identity{UserID: "u-1", Email: "a@b.c"}, time.Minute)
	require.NoError(t, err)
	noEmail, err := Sign(secret, "", Identity{UserID: "u-1"}, time.Minute)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u-1", "email": "a@b.c"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]struct {
		verifier *TokenVerifier
		token    string
	}{
		"expired":        {NewTokenVerifier(secret, ""), expired},
		"wrong key":      {NewTokenVerifier(secret, ""), otherKey},
		"no email":       {NewTokenVerifier(secret, ""), noEmail},
		"alg none":       {NewTokenVerifier(secret, ""), none},
		"wrong audience": {NewTokenVerifier(secret, "authenticated"), valid},
		"garbage":        {NewTokenVerifier(secret, ""), "not-a-jwt"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tt.verifier.Verify(tt.token)
			assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		})
	}
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	_, ok = BearerToken("Basic Zm9v")
	assert.False(t, ok)
	_, ok = BearerToken("Bearer ")
	assert.False(t, ok)
}

type lookup map[string]bool

func (l lookup) Exists(_ context.Context, email string) (bool, error) {
	if email == "broken@example.com" {
		return false, errors.New("db down")
	}
	return l[email], nil
}

func TestCheckers(t *testing.T) {
	ctx := context.Background()
	table := NewTableChecker(lookup{"chef@cocinarte.com": true})
	static := NewStaticChecker([]string{" Owner@Cocinarte.com "})

	ok, err := table.IsAdmin(ctx, Identity{Email: "chef@cocinarte.com"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = static.IsAdmin(ctx, Identity{Email: "owner@cocinarte.com"})
	require.NoError(t, err)
	assert.True(t, ok)

	either := AnyChecker{static, table}
	ok, err = either.IsAdmin(ctx, Identity{Email: "parent@example.com"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = table.IsAdmin(ctx, Identity{Email: "broken@example.com"})
	assert.Error(t, err)
}

type mapFlags struct {
	flags map[string]bool
	sets  int
}

func (m *mapFlags) GetAdminFlag(_ context.Context, email string) (bool, bool, error) {
	v, ok := m.flags[email]
	return v, ok, nil
}

func (m *mapFlags) SetAdminFlag(_ context.Context, email string, isAdmin bool, _ time.Duration) error {
	m.flags[email] = isAdmin
	m.sets++
	return nil
}

type countingChecker struct {
	calls int
}

func (c *countingChecker) IsAdmin(context.Context, Identity) (bool, error) {
	c.calls++
	return true, nil
}

func TestCachedChecker(t *testing.T) {
	next := &countingChecker{}
	flags := &mapFlags{flags: map[string]bool{}}
	checker := NewCachedChecker(next, flags, time.Minute)
	id := Identity{Email: "chef@cocinarte.com"}

	for i := 0; i < 3; i++ {
		ok, err := checker.IsAdmin(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 1, flags.sets)
}
