package embeddable

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
)

var errMissingLoader = errors.New("embeddable: loader not configured")

// Default time range applied to dashboards saved without one.
const (
	DefaultTimeFrom = "now-15m"
	DefaultTimeTo   = "now"
)

// FactoryOptions injects the collaborators shared by every container the factory
// builds.
type FactoryOptions struct {
	Loader              dashboard.Loader
	Capabilities        dashboard.CapabilitiesProvider
	StateTransfer       dashboard.StateTransferProvider
	History             dashboard.History
	Registry            *ChildRegistry
	Renderer            Renderer
	Cache               RenderCache
	Logger              *zap.Logger
	Telemetry           dashboard.Telemetry
	DefaultIndexPattern *IndexPattern
	Clock               func() time.Time
}

// Result is either a container or an error placeholder. Model and Document are
// set when the container was built from a dashboard.
type Result struct {
	Container *Container
	Error     *ErrorEmbeddable
	Model     *dashboard.Dashboard
	Document  *dashboard.SavedDashboard
}

// OK reports whether a container was built.
func (r Result) OK() bool { return r.Container != nil }

// Handler returns whichever variant is set.
func (r Result) Handler() Handler {
	if r.Container != nil {
		return r.Container
	}
	if r.Error != nil {
		return r.Error
	}
	return nil
}

// Err returns the failure of an error result.
func (r Result) Err() error {
	if r.Error == nil {
		return nil
	}
	return r.Error.Err()
}

// Factory builds dashboard containers. None of its constructors panic; every
// failure comes back as an error result.
type Factory struct {
	opts FactoryOptions
	log  *zap.Logger
}

// NewFactory wires a factory.
func NewFactory(opts FactoryOptions) *Factory {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = NewChildRegistry(nil)
	}
	if opts.Telemetry == nil {
		opts.Telemetry = dashboard.NormalizeTelemetry(nil)
	}
	return &Factory{opts: opts, log: opts.Logger}
}

// Type is the embeddable type the factory builds.
func (f *Factory) Type() string { return dashboard.ContainerType }

// IsEditable resolves the capabilities on every call. Errors read as not editable.
func (f *Factory) IsEditable(ctx context.Context) bool {
	if f.opts.Capabilities == nil {
		return false
	}
	caps, err := f.opts.Capabilities.Capabilities(ctx)
	if err != nil {
		f.log.Warn("capabilities lookup failed", zap.Error(err))
		return false
	}
	return caps.CanEdit()
}

// DefaultInput is the floor every container input starts from.
func (f *Factory) DefaultInput() ContainerInput {
	return ContainerInput{
		Panels:               map[string]PanelState{},
		Filters:              []dashboard.Filter{},
		Query:                dashboard.Query{Language: dashboard.DefaultQueryLanguage},
		TimeRange:            dashboard.TimeRange{From: DefaultTimeFrom, To: DefaultTimeTo},
		ViewMode:             dashboard.ViewModeView,
		IsEmbeddedExternally: false,
		IsFullScreenMode:     false,
		UseMargins:           true,
	}
}

// InputFromDashboard derives a container input from a serialized dashboard on top
// of base.
func InputFromDashboard(base ContainerInput, s dashboard.SerializedDashboard) ContainerInput {
	out := cloneInput(base)
	out.ID = s.ID
	out.Title = s.Title
	out.Description = s.Description
	out.Panels = PanelsFromDashboard(s.Panels)
	out.Filters = dashboard.CloneFilters(s.Filters)
	if out.Filters == nil {
		out.Filters = []dashboard.Filter{}
	}
	out.Query = s.Query
	if out.Query.Language == "" {
		out.Query.Language = dashboard.DefaultQueryLanguage
	}
	if s.TimeRestore && s.TimeFrom != "" && s.TimeTo != "" {
		out.TimeRange = dashboard.TimeRange{From: s.TimeFrom, To: s.TimeTo}
	}
	if s.RefreshInterval != nil {
		rc := *s.RefreshInterval
		out.RefreshConfig = &rc
	}
	out.UseMargins = s.Options.UseMargins
	out.HidePanelTitles = s.Options.HidePanelTitles
	return out
}

// CreateFromSavedObject loads the document id and builds a container over it.
func (f *Factory) CreateFromSavedObject(ctx context.Context, id string, partial InputChanges, parent *Container) Result {
	input := f.DefaultInput()
	input.ID = id
	applyChanges(&input, partial)
	if f.opts.Loader == nil {
		return f.failure(ctx, errMissingLoader, input, parent)
	}
	if err := ctx.Err(); err != nil {
		return f.failure(ctx, err, input, parent)
	}
	doc, err := f.opts.Loader.Get(ctx, id)
	if err != nil {
		return f.failure(ctx, err, input, parent)
	}
	serialized, err := dashboard.ConvertToSerialized(doc)
	if err != nil {
		doc.Destroy()
		return f.failure(ctx, err, input, parent)
	}
	model := dashboard.NewDashboard(&serialized)
	res := f.CreateFromDashboard(ctx, model, partial, parent)
	if !res.OK() {
		doc.Destroy()
		return res
	}
	res.Document = doc
	return res
}

// Create builds a container for a new, unsaved dashboard.
func (f *Factory) Create(ctx context.Context, partial InputChanges, parent *Container) Result {
	return f.CreateFromDashboard(ctx, dashboard.NewDashboard(nil), partial, parent)
}

// CreateFromDashboard builds a container over an already hydrated model.
func (f *Factory) CreateFromDashboard(ctx context.Context, model *dashboard.Dashboard, partial InputChanges, parent *Container) Result {
	input := f.DefaultInput()
	applyChanges(&input, partial)
	if model == nil {
		return f.failure(ctx, errors.New("embeddable: dashboard model is required"), input, parent)
	}
	input = InputFromDashboard(f.DefaultInput(), model.Serialize())
	applyChanges(&input, partial)
	if err := ctx.Err(); err != nil {
		return f.failure(ctx, err, input, parent)
	}
	var transfer dashboard.StateTransfer
	if f.opts.StateTransfer != nil {
		transfer = f.opts.StateTransfer.StateTransfer(f.opts.History)
	}
	container := NewContainer(input, ContainerOptions{
		Registry:            f.opts.Registry,
		Renderer:            f.opts.Renderer,
		Cache:               f.opts.Cache,
		Logger:              f.log.With(zap.String("dashboard_id", input.ID)),
		Telemetry:           f.opts.Telemetry,
		StateTransfer:       transfer,
		DefaultIndexPattern: f.opts.DefaultIndexPattern,
		Clock:               f.opts.Clock,
	})
	return Result{Container: container, Model: model}
}

func (f *Factory) failure(ctx context.Context, err error, input ContainerInput, parent *Container) Result {
	fields := []zap.Field{zap.String("dashboard_id", input.ID), zap.Error(err)}
	if dashboard.IsNotFound(err) {
		f.log.Warn("dashboard container could not be created", fields...)
	} else {
		f.log.Error("dashboard container could not be created", fields...)
	}
	f.opts.Telemetry.Record(ctx, dashboard.EventLoadFailed, map[string]any{
		"dashboard_id": input.ID,
		"error":        err.Error(),
		"reason":       dashboard.FailureReason(err),
	})
	return Result{Error: newContainerError(err, input, parent, f.opts.Renderer)}
}
