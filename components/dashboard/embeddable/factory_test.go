package embeddable

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
)

func savedSales() *dashboard.SavedDashboard {
	doc := dashboard.NewSavedDashboard("abc123")
	doc.Title = "Sales"
	doc.PanelsJSON = `[{"panelIndex":"1","type":"visualization","id":"v1","embeddableConfig":{"indexPattern":"sales-*"},"gridData":{"x":0,"y":0,"w":24,"h":15,"i":"1"}}]`
	doc.TimeRestore = true
	doc.TimeFrom = "now-30d"
	doc.TimeTo = "now"
	return doc
}

type releasingLoader struct {
	*dashboard.InMemoryLoader
	doc      *dashboard.SavedDashboard
	released atomic.Int32
}

func (l *releasingLoader) Get(context.Context, string) (*dashboard.SavedDashboard, error) {
	doc := l.doc.Copy()
	doc.OnDestroy(func() { l.released.Add(1) })
	return doc, nil
}

type recordingTransfer struct {
	calls   atomic.Int32
	history dashboard.History
}

func (r *recordingTransfer) StateTransfer(h dashboard.History) dashboard.StateTransfer {
	r.calls.Add(1)
	r.history = h
	return nil
}

func TestIsEditableResolvesEveryCall(t *testing.T) {
	var calls atomic.Int32
	caps := dashboard.Capabilities{CreateNew: true, ShowWriteControls: true}
	factory := NewFactory(FactoryOptions{
		Capabilities: dashboard.CapabilitiesFunc(func(context.Context) (dashboard.Capabilities, error) {
			calls.Add(1)
			return caps, nil
		}),
	})

	assert.True(t, factory.IsEditable(context.Background()))
	caps.ShowWriteControls = false
	assert.False(t, factory.IsEditable(context.Background()))
	assert.Equal(t, int32(2), calls.Load())

	failing := NewFactory(FactoryOptions{
		Capabilities: dashboard.CapabilitiesFunc(func(context.Context) (dashboard.Capabilities, error) {
			return dashboard.Capabilities{CreateNew: true, ShowWriteControls: true}, errors.New("offline")
		}),
	})
	assert.False(t, failing.IsEditable(context.Background()))
	assert.False(t, NewFactory(FactoryOptions{}).IsEditable(context.Background()))
}

func TestDefaultInputFloor(t *testing.T) {
	in := NewFactory(FactoryOptions{}).DefaultInput()
	assert.Empty(t, in.Panels)
	assert.NotNil(t, in.Panels)
	assert.False(t, in.IsFullScreenMode)
	assert.False(t, in.IsEmbeddedExternally)
	assert.True(t, in.UseMargins)
	assert.Equal(t, dashboard.ViewModeView, in.ViewMode)
}

func TestCreateFromSavedObjectBuildsContainer(t *testing.T) {
	transfer := &recordingTransfer{}
	history := dashboard.NewMemoryHistory("/view/abc123")
	factory := NewFactory(FactoryOptions{
		Loader:        dashboard.NewInMemoryLoader(savedSales()),
		StateTransfer: transfer,
		History:       history,
		Renderer:      &stubRenderer{},
	})

	res := factory.CreateFromSavedObject(context.Background(), "abc123", InputChanges{ViewMode: ptr(dashboard.ViewModeEdit)}, nil)
	require.True(t, res.OK())
	require.NoError(t, res.Err())
	require.NotNil(t, res.Document)
	assert.Equal(t, "Sales", res.Model.Title())

	in := res.Container.Input()
	assert.Equal(t, "abc123", in.ID)
	assert.Equal(t, dashboard.ViewModeEdit, in.ViewMode)
	assert.Equal(t, dashboard.TimeRange{From: "now-30d", To: "now"}, in.TimeRange)
	assert.Equal(t, []string{"1"}, res.Container.ChildIDs())
	assert.Equal(t, []IndexPattern{{ID: "sales-*", Title: "sales-*"}}, res.Container.Output().IndexPatterns)
	assert.Equal(t, int32(1), transfer.calls.Load())
	assert.Same(t, history, transfer.history)
	assert.Same(t, res.Container, res.Handler())
}

func TestCreateFromSavedObjectNotFound(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	telemetry := &countingTelemetry{}
	factory := NewFactory(FactoryOptions{
		Loader:    dashboard.NewInMemoryLoader(),
		Logger:    zap.New(core),
		Telemetry: telemetry,
	})

	res := factory.CreateFromSavedObject(context.Background(), "missing", InputChanges{Title: ptr("kept")}, nil)
	require.False(t, res.OK())
	require.NotNil(t, res.Error)
	assert.True(t, dashboard.IsNotFound(res.Err()))
	original, ok := res.Error.OriginalInput()
	require.True(t, ok)
	assert.Equal(t, "missing", original.ID)
	assert.Equal(t, "kept", original.Title)
	assert.Same(t, res.Error, res.Handler())
	assert.Equal(t, 1, logs.FilterMessage("dashboard container could not be created").Len())
	assert.Equal(t, 1, telemetry.count(dashboard.EventLoadFailed))

	node := &recordingNode{}
	require.NoError(t, res.Error.Mount(context.Background(), node))
	assert.Contains(t, node.html, "could not locate")
	res.Error.Destroy()
	res.Error.Destroy()
	assert.Equal(t, 1, node.unmounts)
}

func TestCreateFromSavedObjectReleasesDocumentOnConversionFailure(t *testing.T) {
	broken := savedSales()
	broken.PanelsJSON = `{not json`
	loader := &releasingLoader{InMemoryLoader: dashboard.NewInMemoryLoader(), doc: broken}
	factory := NewFactory(FactoryOptions{Loader: loader})

	res := factory.CreateFromSavedObject(context.Background(), "abc123", InputChanges{}, nil)
	require.False(t, res.OK())
	var convErr *dashboard.ConversionError
	assert.ErrorAs(t, res.Err(), &convErr)
	assert.Equal(t, int32(1), loader.released.Load())
}

func TestCreateFromSavedObjectHonoursCancellation(t *testing.T) {
	factory := NewFactory(FactoryOptions{Loader: dashboard.NewInMemoryLoader(savedSales())})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := factory.CreateFromSavedObject(ctx, "abc123", InputChanges{}, nil)
	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err(), context.Canceled)
}

func TestCreateNewDashboard(t *testing.T) {
	factory := NewFactory(FactoryOptions{})

	res := factory.Create(context.Background(), InputChanges{IsFullScreenMode: ptr(true)}, nil)
	require.True(t, res.OK())
	assert.Equal(t, "", res.Model.ID())
	assert.Nil(t, res.Document)
	in := res.Container.Input()
	assert.Equal(t, "", in.ID)
	assert.True(t, in.IsFullScreenMode)
	assert.Empty(t, res.Container.ChildIDs())
}

func TestCreateFromDashboardRequiresModel(t *testing.T) {
	res := NewFactory(FactoryOptions{}).CreateFromDashboard(context.Background(), nil, InputChanges{}, nil)
	assert.False(t, res.OK())
	assert.Error(t, res.Err())
}
