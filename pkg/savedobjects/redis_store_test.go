package savedobjects

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dashboard "github.com/goliatone/go-dashboard-editor/components/dashboard"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisStore(client, "")
}

func TestRedisStoreSaveAndGet(t *testing.T) {
	mr, store := newTestRedis(t)
	ctx := context.Background()

	id, err := store.Save(ctx, sampleDoc("", "Sales"))
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.True(t, mr.Exists("dashboards:doc:"+id))

	doc, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Sales", doc.Title)
	assert.Equal(t, id, doc.ID)

	converted, err := dashboard.ConvertToSerialized(doc)
	require.NoError(t, err)
	assert.True(t, converted.Options.UseMargins)
}

func TestRedisStoreGetMissing(t *testing.T) {
	_, store := newTestRedis(t)
	_, err := store.Get(context.Background(), "missing")
	assert.True(t, dashboard.IsNotFound(err))
}

func TestRedisStoreKeepsHitsOnOverwrite(t *testing.T) {
	_, store := newTestRedis(t)
	ctx := context.Background()
	doc := sampleDoc("abc", "Sales")
	doc.Hits = 7
	_, err := store.Save(ctx, doc)
	require.NoError(t, err)

	_, err = store.Save(ctx, sampleDoc("abc", "Sales v2"))
	require.NoError(t, err)

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Hits)
	assert.Equal(t, "Sales v2", got.Title)
}

func TestRedisStoreDeleteAndFind(t *testing.T) {
	_, store := newTestRedis(t)
	ctx := context.Background()
	for _, doc := range []*dashboard.SavedDashboard{
		sampleDoc("a", "Ops"),
		sampleDoc("b", "Sales EU"),
		sampleDoc("c", "Sales US"),
	} {
		_, err := store.Save(ctx, doc)
		require.NoError(t, err)
	}

	docs, err := store.Find(ctx, dashboard.FindOptions{Search: "sales"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].ID)

	err = store.Delete(ctx, "b", "missing")
	assert.True(t, dashboard.IsNotFound(err))

	docs, err = store.Find(ctx, dashboard.FindOptions{PerPage: 1, Page: 2})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "c", docs[0].ID)
}
