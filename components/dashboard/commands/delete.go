package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-dashboard-editor/components/dashboard"
)

// DeleteDashboardsInput lists the dashboards to remove.
type DeleteDashboardsInput struct {
	IDs      []string `json:"ids"`
	ActorID  string   `json:"actor_id"`
	UserID   string   `json:"user_id"`
	TenantID string   `json:"tenant_id"`
}

type deleteService interface {
	Delete(ctx context.Context, ids ...string) error
}

// DeleteDashboardsCommand wraps Service.Delete.
type DeleteDashboardsCommand struct {
	service   deleteService
	telemetry Telemetry
}

// NewDeleteDashboardsCommand creates the command.
func NewDeleteDashboardsCommand(service deleteService, telemetry Telemetry) *DeleteDashboardsCommand {
	return &DeleteDashboardsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[DeleteDashboardsInput] = (*DeleteDashboardsCommand)(nil)

// Execute deletes the dashboards.
func (c *DeleteDashboardsCommand) Execute(ctx context.Context, msg DeleteDashboardsInput) error {
	if c.service == nil {
		return errors.New("delete command requires service")
	}
	if len(msg.IDs) == 0 {
		return errors.New("delete command requires at least one id")
	}
	ctx = dashboard.ContextWithActivity(ctx, dashboard.ActivityContext{
		ActorID:  msg.ActorID,
		UserID:   msg.UserID,
		TenantID: msg.TenantID,
	})
	if err := c.service.Delete(ctx, msg.IDs...); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.delete", map[string]any{"count": len(msg.IDs)})
	return nil
}
