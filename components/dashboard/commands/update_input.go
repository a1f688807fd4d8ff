package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/embeddable"
)

// UpdateInputInput applies partial input changes to a session's container.
type UpdateInputInput struct {
	SessionKey string                  `json:"session_key"`
	Changes    embeddable.InputChanges `json:"changes"`
}

// UpdateInputCommand wraps Container.UpdateInput.
type UpdateInputCommand struct {
	resolver  ContainerResolver
	telemetry Telemetry
}

// NewUpdateInputCommand creates the command.
func NewUpdateInputCommand(resolver ContainerResolver, telemetry Telemetry) *UpdateInputCommand {
	return &UpdateInputCommand{resolver: resolver, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdateInputInput] = (*UpdateInputCommand)(nil)

// Execute merges the changes into the container input.
func (c *UpdateInputCommand) Execute(ctx context.Context, msg UpdateInputInput) error {
	if c.resolver == nil {
		return errors.New("update input command requires container resolver")
	}
	container, err := c.resolver.Container(msg.SessionKey)
	if err != nil {
		return err
	}
	container.UpdateInput(msg.Changes)
	c.telemetry.Record(ctx, "dashboard.command.update_input", map[string]any{
		"session": msg.SessionKey,
	})
	return nil
}
