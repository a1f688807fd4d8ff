package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-dashboard-editor/components/dashboard"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/embeddable"
)

// ContainerResolver finds the live container of an open dashboard session.
type ContainerResolver interface {
	Container(key string) (*embeddable.Container, error)
}

// ReloadDashboardInput forces every panel of a session to re-render. Token, when
// set, receives the reload token that was stamped on the container input.
type ReloadDashboardInput struct {
	SessionKey string `json:"session_key"`
	Token      *int64 `json:"-"`
}

type reloadNotifier interface {
	NotifyDashboardUpdated(ctx context.Context, event dashboard.Event) error
}

// ReloadDashboardCommand bumps a container's reload token and tells the refresh
// transports about it.
type ReloadDashboardCommand struct {
	resolver  ContainerResolver
	notifier  reloadNotifier
	telemetry Telemetry
}

// NewReloadDashboardCommand creates the command. notifier may be nil.
func NewReloadDashboardCommand(resolver ContainerResolver, notifier reloadNotifier, telemetry Telemetry) *ReloadDashboardCommand {
	return &ReloadDashboardCommand{resolver: resolver, notifier: notifier, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ReloadDashboardInput] = (*ReloadDashboardCommand)(nil)

// Execute reloads the session's container.
func (c *ReloadDashboardCommand) Execute(ctx context.Context, msg ReloadDashboardInput) error {
	if c.resolver == nil {
		return errors.New("reload command requires container resolver")
	}
	container, err := c.resolver.Container(msg.SessionKey)
	if err != nil {
		return err
	}
	token := container.Reload(ctx)
	if msg.Token != nil {
		*msg.Token = token
	}
	if c.notifier != nil {
		if err := c.notifier.NotifyDashboardUpdated(ctx, dashboard.Event{
			DashboardID: container.Input().ID,
			Reason:      "reload",
			Metadata:    map[string]any{"token": token},
		}); err != nil {
			return err
		}
	}
	c.telemetry.Record(ctx, "dashboard.command.reload", map[string]any{
		"session": msg.SessionKey,
		"token":   token,
	})
	return nil
}
