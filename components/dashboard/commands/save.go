package commands

import (
	"context"
	"errors"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-dashboard-editor/components/dashboard"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/instance"
)

// SaveDashboardInput carries a save request. Result, when set, receives the
// stored dashboard.
type SaveDashboardInput struct {
	Request  dashboard.SaveRequest
	ActorID  string                `json:"actor_id"`
	UserID   string                `json:"user_id"`
	TenantID string                `json:"tenant_id"`
	Result   *dashboard.SaveResult `json:"-"`
}

type saveService interface {
	Save(ctx context.Context, req dashboard.SaveRequest) (dashboard.SaveResult, error)
}

// SaveDashboardCommand wraps Service.Save.
type SaveDashboardCommand struct {
	service   saveService
	telemetry Telemetry
}

// NewSaveDashboardCommand creates the command.
func NewSaveDashboardCommand(service saveService, telemetry Telemetry) *SaveDashboardCommand {
	return &SaveDashboardCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveDashboardInput] = (*SaveDashboardCommand)(nil)

// Execute saves the dashboard under the caller's activity context.
func (c *SaveDashboardCommand) Execute(ctx context.Context, msg SaveDashboardInput) error {
	if c.service == nil {
		return errors.New("save command requires service")
	}
	ctx = dashboard.ContextWithActivity(ctx, dashboard.ActivityContext{
		ActorID:  msg.ActorID,
		UserID:   msg.UserID,
		TenantID: msg.TenantID,
	})
	res, err := c.service.Save(ctx, msg.Request)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = res
	}
	c.telemetry.Record(ctx, "dashboard.command.save", map[string]any{
		"dashboard_id": res.ID,
		"created":      res.Created,
	})
	return nil
}

// SaveSessionInput saves the dashboard open in a session. The request's Dashboard
// is filled from the session's app state.
type SaveSessionInput struct {
	SessionKey string                `json:"session_key"`
	Request    dashboard.SaveRequest `json:"-"`
	ActorID    string                `json:"actor_id"`
	UserID     string                `json:"user_id"`
	TenantID   string                `json:"tenant_id"`
	Result     *dashboard.SaveResult `json:"-"`
}

type sessionSaver interface {
	Save(ctx context.Context, key string, saver instance.Saver, req dashboard.SaveRequest) (dashboard.SaveResult, error)
}

// SaveSessionCommand saves a session's edited dashboard through the service.
type SaveSessionCommand struct {
	sessions  sessionSaver
	service   saveService
	telemetry Telemetry
}

// NewSaveSessionCommand creates the command.
func NewSaveSessionCommand(sessions sessionSaver, service saveService, telemetry Telemetry) *SaveSessionCommand {
	return &SaveSessionCommand{sessions: sessions, service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveSessionInput] = (*SaveSessionCommand)(nil)

// Execute saves the session under the caller's activity context.
func (c *SaveSessionCommand) Execute(ctx context.Context, msg SaveSessionInput) error {
	if c.sessions == nil || c.service == nil {
		return errors.New("save session command requires sessions and service")
	}
	if msg.SessionKey == "" {
		return fmt.Errorf("%w: session key is required", dashboard.ErrInvalidRequest)
	}
	ctx = dashboard.ContextWithActivity(ctx, dashboard.ActivityContext{
		ActorID:  msg.ActorID,
		UserID:   msg.UserID,
		TenantID: msg.TenantID,
	})
	res, err := c.sessions.Save(ctx, msg.SessionKey, c.service, msg.Request)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = res
	}
	c.telemetry.Record(ctx, "dashboard.command.save_session", map[string]any{
		"session":      msg.SessionKey,
		"dashboard_id": res.ID,
		"created":      res.Created,
	})
	return nil
}
