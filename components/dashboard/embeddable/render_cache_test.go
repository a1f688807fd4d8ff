package embeddable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheStoresEntry(t *testing.T) {
	cache := NewTTLCache(time.Minute)
	calls := 0
	render := func() (string, error) {
		calls++
		return "html", nil
	}

	val1, err := cache.GetOrRender("key", render)
	require.NoError(t, err)
	val2, err := cache.GetOrRender("key", render)
	require.NoError(t, err)

	assert.Equal(t, "html", val1)
	assert.Equal(t, val1, val2)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, cache.Len())
}

func TestTTLCacheExpires(t *testing.T) {
	cache := NewTTLCache(2 * time.Millisecond)
	calls := 0
	render := func() (string, error) {
		calls++
		return "fresh", nil
	}

	_, err := cache.GetOrRender("key", render)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = cache.GetOrRender("key", render)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestRenderKeySeparatesReloadToken(t *testing.T) {
	input := ChildInput{ID: "p1", Type: VisualizationType, TimeRange: testRange}
	reloaded := input
	reloaded.LastReloadRequestTime = 42

	assert.Equal(t, inputHash(input), inputHash(reloaded))
	assert.NotEqual(t, renderKey(input), renderKey(reloaded))
}
