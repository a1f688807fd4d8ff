package instance

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/appstate"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/embeddable"
)

func newSessions(t *testing.T, docs ...*dashboard.SavedDashboard) *Sessions {
	t.Helper()
	sessions, _ := newSessionsWithStore(t, docs...)
	return sessions
}

func newSessionsWithStore(t *testing.T, docs ...*dashboard.SavedDashboard) (*Sessions, *dashboard.InMemoryLoader) {
	t.Helper()
	store := dashboard.NewInMemoryLoader(docs...)
	sessions := NewSessions(Deps{
		Factory: embeddable.NewFactory(embeddable.FactoryOptions{Loader: store, Renderer: stubRenderer{}}),
		Loader:  store,
	}, false)
	t.Cleanup(sessions.CloseAll)
	return sessions, store
}

func TestSessionsOpenAppliesURLState(t *testing.T) {
	sessions := newSessions(t, savedDoc("abc123", "Sales"))
	state := appstate.Defaults(dashboard.SerializedDashboard{ID: "abc123", Title: "From URL"}, false)
	value, err := appstate.URLValue(state)
	require.NoError(t, err)

	session, err := sessions.Open(context.Background(), OpenRequest{
		Key:         "s1",
		DashboardID: "abc123",
		Search:      "?" + url.Values{dashboard.AppStateKey: {value}}.Encode(),
	})
	require.NoError(t, err)

	c, err := sessions.Container("s1")
	require.NoError(t, err)
	assert.Equal(t, "From URL", c.Input().Title)
	html, err := session.HTML(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "container:abc123", html)

	app, err := sessions.AppState("s1")
	require.NoError(t, err)
	assert.Equal(t, "From URL", app.Get().Dashboard.Title)
}

func TestSessionsOpenFailsForMissingDashboard(t *testing.T) {
	sessions := newSessions(t)

	_, err := sessions.Open(context.Background(), OpenRequest{Key: "s1", DashboardID: "nope"})
	assert.True(t, dashboard.IsNotFound(err))
	assert.Equal(t, 0, sessions.Len())
}

func TestSessionsCloseTearsDown(t *testing.T) {
	sessions := newSessions(t, savedDoc("abc123", "Sales"))
	session, err := sessions.Open(context.Background(), OpenRequest{Key: "s1", DashboardID: "abc123"})
	require.NoError(t, err)
	c := session.Container()

	sessions.Close("s1")

	assert.True(t, c.Destroyed())
	_, err = sessions.Container("s1")
	assert.True(t, errors.Is(err, ErrUnknownSession))
}

func TestSessionsOpenNewDashboard(t *testing.T) {
	sessions := newSessions(t)

	session, err := sessions.Open(context.Background(), OpenRequest{Key: "draft"})
	require.NoError(t, err)
	assert.Equal(t, dashboard.CreateNewDashboardURL, session.History.Location().Pathname)
	assert.Equal(t, dashboard.ViewModeEdit, session.Binding.AppState().Get().Dashboard.ViewMode)
}

func TestSessionsSavePersistsAppStateAndMarksClean(t *testing.T) {
	ctx := context.Background()
	sessions, store := newSessionsWithStore(t, savedDoc("abc123", "Sales"))
	service := dashboard.NewService(dashboard.ServiceOptions{Loader: store})
	session, err := sessions.Open(ctx, OpenRequest{Key: "s1", DashboardID: "abc123"})
	require.NoError(t, err)

	require.NoError(t, session.Binding.AppState().Transitions().Set(appstate.PropTitle, "Sales v2"))
	require.Eventually(t, func() bool {
		return session.Container().Input().Title == "Sales v2" && session.Signals.IsDirty()
	}, time.Second, 5*time.Millisecond)

	res, err := sessions.Save(ctx, "s1", service, dashboard.SaveRequest{})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "abc123", res.ID)

	stored, err := store.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Sales v2", stored.Title)
	assert.Equal(t, "Sales v2", session.Loader.Snapshot().Instance.Model.Title())
	assert.Eventually(t, func() bool {
		return !session.Signals.IsDirty() &&
			!session.Binding.HasUnappliedChanges() &&
			session.Binding.AppState().Get().Dashboard.Title == "Sales v2"
	}, time.Second, 5*time.Millisecond)
}

func TestSessionsSaveReopensCreatedDashboard(t *testing.T) {
	ctx := context.Background()
	sessions, store := newSessionsWithStore(t)
	service := dashboard.NewService(dashboard.ServiceOptions{Loader: store})
	draft, err := sessions.Open(ctx, OpenRequest{Key: "draft"})
	require.NoError(t, err)
	require.NoError(t, draft.Binding.AppState().Transitions().Set(appstate.PropTitle, "Fresh"))

	res, err := sessions.Save(ctx, "draft", service, dashboard.SaveRequest{})
	require.NoError(t, err)
	require.True(t, res.Created)
	require.NotEmpty(t, res.ID)

	reopened, ok := sessions.Get("draft")
	require.True(t, ok)
	assert.NotSame(t, draft, reopened)
	assert.Equal(t, dashboard.EditURL(res.ID), reopened.History.Location().Pathname)
	assert.Equal(t, "Fresh", reopened.Binding.AppState().Get().Dashboard.Title)
	assert.Equal(t, 1, sessions.Len())
}

func TestSessionsSaveUnknownSession(t *testing.T) {
	sessions, store := newSessionsWithStore(t)
	service := dashboard.NewService(dashboard.ServiceOptions{Loader: store})

	_, err := sessions.Save(context.Background(), "missing", service, dashboard.SaveRequest{Title: "x"})
	assert.True(t, errors.Is(err, ErrUnknownSession))
}
