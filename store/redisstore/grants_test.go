package redisstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-sso-server/store/redisstore"
)

func exerciseGrantStore(t *testing.T, store redisstore.GrantStore) {
	t.Helper()
	ctx := context.Background()
	key := uuid.New().String()
	grant := redisstore.Grant{Kind: redisstore.KindPasswordReset, UserID: "u1", CreatedAt: time.Now().UTC().Truncate(time.Second)}

	require.NoError(t, store.Put(ctx, key, grant, time.Minute))

	wrongKind, err := store.Take(ctx, redisstore.KindApprovedPasswordReset, key)
	require.NoError(t, err)
	require.Nil(t, wrongKind, "a key only matches its own kind")

	got, err := store.Take(ctx, redisstore.KindPasswordReset, key)
	require.NoError(t, err)
	require.NotNil(t, got, "a miss under another kind leaves the grant in place")
	require.Equal(t, grant.Kind, got.Kind)
	require.Equal(t, grant.UserID, got.UserID)

	again, err := store.Take(ctx, redisstore.KindPasswordReset, key)
	require.NoError(t, err)
	require.Nil(t, again, "grants are single use")

	missing, err := store.Take(ctx, redisstore.KindPasswordReset, "unknown")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestMemoryGrantStore(t *testing.T) {
	exerciseGrantStore(t, redisstore.NewMemoryGrantStore())
}

func TestMemoryGrantStore_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := redisstore.NewMemoryGrantStore().WithNowFunc(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", redisstore.Grant{Kind: redisstore.KindPasswordReset, UserID: "u1"}, time.Minute))
	now = now.Add(time.Minute)

	got, err := store.Take(ctx, redisstore.KindPasswordReset, "k")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisGrantStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	client, err := redisstore.Connect(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	exerciseGrantStore(t, redisstore.NewRedisGrantStore(client))
}
