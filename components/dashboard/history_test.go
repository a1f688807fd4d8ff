package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	loc := ParseLocation("/view/abc?_a=(x:1)&_g=()#top")
	assert.Equal(t, "/view/abc", loc.Pathname)
	assert.Equal(t, "?_a=(x:1)&_g=()", loc.Search)
	assert.Equal(t, "#top", loc.Hash)
	assert.Equal(t, "(x:1)", loc.Query().Get("_a"))
	assert.Equal(t, "/view/abc?_a=(x:1)&_g=()#top", loc.String())

	cleared := loc.WithQuery(nil)
	assert.Equal(t, "/view/abc#top", cleared.String())
}

func TestDashboardIDFromPath(t *testing.T) {
	assert.Equal(t, "abc", DashboardIDFromPath("/view/abc"))
	assert.Equal(t, "a b", DashboardIDFromPath(EditURL("a b")))
	assert.Equal(t, "abc", DashboardIDFromPath("/view/abc/extra"))
	assert.Equal(t, "", DashboardIDFromPath("/create"))
	assert.Equal(t, "", DashboardIDFromPath(LandingPagePath))
}

func TestMemoryHistoryNavigation(t *testing.T) {
	h := NewMemoryHistory("/list")
	var seen []HistoryAction
	unlisten := h.Listen(func(_ Location, action HistoryAction) {
		seen = append(seen, action)
	})

	h.Push(ParseLocation("/view/a"))
	h.Push(ParseLocation("/view/b"))
	h.Replace(ParseLocation("/view/c"))
	require.Equal(t, 3, h.Len())
	assert.Equal(t, "/view/c", h.Location().Pathname)

	require.True(t, h.Back())
	assert.Equal(t, "/view/a", h.Location().Pathname)
	require.False(t, h.Go(5))

	h.Push(ParseLocation("/create"))
	assert.Equal(t, 3, h.Len())

	unlisten()
	h.Push(ParseLocation("/list"))
	assert.Equal(t, []HistoryAction{HistoryPush, HistoryPush, HistoryReplace, HistoryPop, HistoryPush}, seen)
}
