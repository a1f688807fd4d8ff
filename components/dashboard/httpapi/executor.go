package httpapi

import (
	"context"
	"errors"
	"net/http"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-dashboard-editor/components/dashboard"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/commands"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/queries"
)

// ErrNotConfigured is returned by CommandExecutor operations without a backing
// command or query.
var ErrNotConfigured = errors.New("httpapi: operation not configured")

// Executor is the transport-neutral surface shared by the net/http handlers and
// the go-router adapter.
type Executor interface {
	List(ctx context.Context, opts dashboard.FindOptions) ([]dashboard.ListItem, error)
	Load(ctx context.Context, id string) (dashboard.SerializedDashboard, error)
	Save(ctx context.Context, input commands.SaveDashboardInput) error
	SaveSession(ctx context.Context, input commands.SaveSessionInput) error
	Delete(ctx context.Context, input commands.DeleteDashboardsInput) error
	Reload(ctx context.Context, input commands.ReloadDashboardInput) error
	UpdateInput(ctx context.Context, input commands.UpdateInputInput) error
	Transition(ctx context.Context, input commands.TransitionInput) error
	Editable(ctx context.Context) (bool, error)
	Render(ctx context.Context, input queries.RenderDashboardInput) (queries.RenderedDashboard, error)
}

// CommandExecutor adapts commands and queries to Executor.
type CommandExecutor struct {
	ListQuerier          gocommand.Querier[dashboard.FindOptions, []dashboard.ListItem]
	LoadQuerier          gocommand.Querier[queries.LoadDashboardInput, dashboard.SerializedDashboard]
	EditableQuerier      gocommand.Querier[queries.IsEditableInput, bool]
	RenderQuerier        gocommand.Querier[queries.RenderDashboardInput, queries.RenderedDashboard]
	SaveCommander        gocommand.Commander[commands.SaveDashboardInput]
	SaveSessionCommander gocommand.Commander[commands.SaveSessionInput]
	DeleteCommander      gocommand.Commander[commands.DeleteDashboardsInput]
	ReloadCommander      gocommand.Commander[commands.ReloadDashboardInput]
	UpdateCommander      gocommand.Commander[commands.UpdateInputInput]
	TransitionCommander  gocommand.Commander[commands.TransitionInput]
}

var _ Executor = (*CommandExecutor)(nil)

func (e *CommandExecutor) List(ctx context.Context, opts dashboard.FindOptions) ([]dashboard.ListItem, error) {
	if e.ListQuerier == nil {
		return nil, ErrNotConfigured
	}
	return e.ListQuerier.Query(ctx, opts)
}

func (e *CommandExecutor) Load(ctx context.Context, id string) (dashboard.SerializedDashboard, error) {
	if e.LoadQuerier == nil {
		return dashboard.SerializedDashboard{}, ErrNotConfigured
	}
	return e.LoadQuerier.Query(ctx, queries.LoadDashboardInput{ID: id})
}

func (e *CommandExecutor) Save(ctx context.Context, input commands.SaveDashboardInput) error {
	if e.SaveCommander == nil {
		return ErrNotConfigured
	}
	return e.SaveCommander.Execute(ctx, input)
}

func (e *CommandExecutor) SaveSession(ctx context.Context, input commands.SaveSessionInput) error {
	if e.SaveSessionCommander == nil {
		return ErrNotConfigured
	}
	return e.SaveSessionCommander.Execute(ctx, input)
}

func (e *CommandExecutor) Delete(ctx context.Context, input commands.DeleteDashboardsInput) error {
	if e.DeleteCommander == nil {
		return ErrNotConfigured
	}
	return e.DeleteCommander.Execute(ctx, input)
}

func (e *CommandExecutor) Reload(ctx context.Context, input commands.ReloadDashboardInput) error {
	if e.ReloadCommander == nil {
		return ErrNotConfigured
	}
	return e.ReloadCommander.Execute(ctx, input)
}

func (e *CommandExecutor) UpdateInput(ctx context.Context, input commands.UpdateInputInput) error {
	if e.UpdateCommander == nil {
		return ErrNotConfigured
	}
	return e.UpdateCommander.Execute(ctx, input)
}

func (e *CommandExecutor) Transition(ctx context.Context, input commands.TransitionInput) error {
	if e.TransitionCommander == nil {
		return ErrNotConfigured
	}
	return e.TransitionCommander.Execute(ctx, input)
}

func (e *CommandExecutor) Editable(ctx context.Context) (bool, error) {
	if e.EditableQuerier == nil {
		return false, nil
	}
	return e.EditableQuerier.Query(ctx, queries.IsEditableInput{})
}

func (e *CommandExecutor) Render(ctx context.Context, input queries.RenderDashboardInput) (queries.RenderedDashboard, error) {
	if e.RenderQuerier == nil {
		return queries.RenderedDashboard{}, ErrNotConfigured
	}
	return e.RenderQuerier.Query(ctx, input)
}

// StatusFor maps an operation error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case dashboard.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ErrNotConfigured):
		return http.StatusNotImplemented
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	var conv *dashboard.ConversionError
	if errors.As(err, &conv) {
		return http.StatusUnprocessableEntity
	}
	if dashboard.IsInvalid(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
