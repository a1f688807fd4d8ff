package queries

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-dashboard-editor/components/dashboard"
)

// LoadDashboardInput identifies a saved dashboard. An empty id loads a new one.
type LoadDashboardInput struct {
	ID string
}

type loadService interface {
	Load(ctx context.Context, id string) (dashboard.SerializedDashboard, error)
}

// LoadDashboardQuery fetches a dashboard in its serialized form.
type LoadDashboardQuery struct {
	service loadService
}

// NewLoadDashboardQuery builds the query.
func NewLoadDashboardQuery(service loadService) *LoadDashboardQuery {
	return &LoadDashboardQuery{service: service}
}

var _ gocommand.Querier[LoadDashboardInput, dashboard.SerializedDashboard] = (*LoadDashboardQuery)(nil)

// Query loads the dashboard.
func (q *LoadDashboardQuery) Query(ctx context.Context, input LoadDashboardInput) (dashboard.SerializedDashboard, error) {
	if q.service == nil {
		return dashboard.SerializedDashboard{}, errors.New("load query requires service")
	}
	return q.service.Load(ctx, input.ID)
}

type listService interface {
	List(ctx context.Context, opts dashboard.FindOptions) ([]dashboard.ListItem, error)
}

// ListDashboardsQuery returns the landing page rows.
type ListDashboardsQuery struct {
	service listService
}

// NewListDashboardsQuery builds the query.
func NewListDashboardsQuery(service listService) *ListDashboardsQuery {
	return &ListDashboardsQuery{service: service}
}

var _ gocommand.Querier[dashboard.FindOptions, []dashboard.ListItem] = (*ListDashboardsQuery)(nil)

// Query lists dashboards matching opts.
func (q *ListDashboardsQuery) Query(ctx context.Context, opts dashboard.FindOptions) ([]dashboard.ListItem, error) {
	if q.service == nil {
		return nil, errors.New("list query requires service")
	}
	return q.service.List(ctx, opts)
}
