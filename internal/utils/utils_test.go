package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("3f1c0f4e-7d1a-4a53-9a51-0d7c3b6b2f10", "s3cret")
	require.NoError(t, err)

	claims, err := ParseJWT(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "3f1c0f4e-7d1a-4a53-9a51-0d7c3b6b2f10", claims.UserID)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestParseJWT_Rejects(t *testing.T) {
	good, err := GenerateJWT("user-1", "s3cret")
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	tests := map[string]struct {
		token  string
		secret string
	}{
		"wrong secret":  {good, "other"},
		"expired":       {expired, "s3cret"},
		"garbage":       {"not.a.token", "s3cret"},
		"missing user":  {noUser, "s3cret"},
		"empty payload": {"", "s3cret"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJWT(tt.token, tt.secret)
			assert.Error(t, err)
		})
	}
}

func TestCache_DisabledIsNoop(t *testing.T) {
	ctx := context.Background()
	for name, c := range map[string]*Cache{"nil": nil, "no client": NewCache(nil, 0)} {
		t.Run(name, func(t *testing.T) {
			assert.False(t, c.Enabled())
			require.NoError(t, c.Set(ctx, "k", []int{1}))
			var dest []int
			hit, err := c.Get(ctx, "k", &dest)
			require.NoError(t, err)
			assert.False(t, hit)
			c.InvalidateUser(ctx, "user-1")
		})
	}
}

func TestUserKey(t *testing.T) {
	assert.Equal(t, "budget:user:abc:v0:categories", UserKey("abc", 0, CacheCategories))
	assert.Equal(t, "budget:user:abc:v7:incomes", UserKey("abc", 7, CacheIncomes))
}

func newRedisCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCache(rdb, time.Minute), mr
}

func TestCache_HitAfterMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)
	require.True(t, c.Enabled())

	key, err := c.ListKey(ctx, "user-1", CacheIncomes)
	require.NoError(t, err)
	assert.Equal(t, "budget:user:user-1:v0:incomes", key)

	var got []int
	hit, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, key, []int{1, 2}))
	hit, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(time.Minute)
	hit, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit, "entry outlived its TTL")
}

func TestCache_InvalidateUserMovesGeneration(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)

	before, err := c.ListKey(ctx, "user-1", CacheCategories)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, before, []string{"Food"}))
	other, err := c.ListKey(ctx, "user-2", CacheCategories)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, other, []string{"Rent"}))

	c.InvalidateUser(ctx, "user-1")

	after, err := c.ListKey(ctx, "user-1", CacheCategories)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	var got []string
	hit, err := c.Get(ctx, after, &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, generationTTL, mr.TTL(generationKey("user-1")))

	hit, err = c.Get(ctx, other, &got)
	require.NoError(t, err)
	assert.True(t, hit, "other users keep their lists")
}

func TestCache_LateWriteAfterInvalidationIsNotServed(t *testing.T) {
	ctx := context.Background()
	c, _ := newRedisCache(t)

	// A reader resolves its key, then a mutation lands before it writes back
	key, err := c.ListKey(ctx, "user-1", CacheExpenses)
	require.NoError(t, err)
	c.InvalidateUser(ctx, "user-1")
	require.NoError(t, c.Set(ctx, key, []string{"stale"}))

	fresh, err := c.ListKey(ctx, "user-1", CacheExpenses)
	require.NoError(t, err)
	var got []string
	hit, err := c.Get(ctx, fresh, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_ListKeyReportsRedisFailure(t *testing.T) {
	c, mr := newRedisCache(t)
	mr.Close()
	_, err := c.ListKey(context.Background(), "user-1", CacheIncomes)
	assert.Error(t, err)
}

func TestNewCache_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultCacheTTL, NewCache(nil, 0).ttl)
	assert.Equal(t, time.Second, NewCache(nil, time.Second).ttl)
}
