package queries

import (
	"context"
	"errors"

	"github.com/google/uuid"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/instance"
)

// RenderDashboardInput selects the dashboard and URL state to render. Search is
// the route's query string, for instance "?_a=(...)".
type RenderDashboardInput struct {
	DashboardID string
	Search      string
}

// RenderedDashboard is the markup of a mounted dashboard.
type RenderedDashboard struct {
	DashboardID string   `json:"dashboardId"`
	Title       string   `json:"title"`
	Panels      []string `json:"panels"`
	HTML        string   `json:"html"`
}

type sessionOpener interface {
	Open(ctx context.Context, req instance.OpenRequest) (*instance.Session, error)
	Close(key string)
}

// RenderDashboardQuery mounts a dashboard in a throwaway session and returns its
// markup.
type RenderDashboardQuery struct {
	sessions sessionOpener
}

// NewRenderDashboardQuery builds the query.
func NewRenderDashboardQuery(sessions sessionOpener) *RenderDashboardQuery {
	return &RenderDashboardQuery{sessions: sessions}
}

var _ gocommand.Querier[RenderDashboardInput, RenderedDashboard] = (*RenderDashboardQuery)(nil)

// Query renders the dashboard.
func (q *RenderDashboardQuery) Query(ctx context.Context, input RenderDashboardInput) (RenderedDashboard, error) {
	if q.sessions == nil {
		return RenderedDashboard{}, errors.New("render query requires sessions")
	}
	key := "render-" + uuid.NewString()
	session, err := q.sessions.Open(ctx, instance.OpenRequest{
		Key:         key,
		DashboardID: input.DashboardID,
		Search:      input.Search,
	})
	if err != nil {
		return RenderedDashboard{}, err
	}
	defer q.sessions.Close(key)

	html, err := session.HTML(ctx)
	if err != nil {
		return RenderedDashboard{}, err
	}
	container := session.Container()
	return RenderedDashboard{
		DashboardID: input.DashboardID,
		Title:       container.Input().Title,
		Panels:      container.ChildIDs(),
		HTML:        html,
	}, nil
}
