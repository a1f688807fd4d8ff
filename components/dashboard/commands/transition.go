package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/appstate"
)

// AppStateResolver finds the app state of an open dashboard session.
type AppStateResolver interface {
	AppState(key string) (*appstate.Container, error)
}

// TransitionInput sets one app state property, for instance
// appstate.PropViewMode or appstate.PropTitle.
type TransitionInput struct {
	SessionKey string `json:"session_key"`
	Prop       string `json:"prop"`
	Value      any    `json:"value"`
}

// TransitionCommand runs a named app state transition.
type TransitionCommand struct {
	resolver  AppStateResolver
	telemetry Telemetry
}

// NewTransitionCommand creates the command.
func NewTransitionCommand(resolver AppStateResolver, telemetry Telemetry) *TransitionCommand {
	return &TransitionCommand{resolver: resolver, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[TransitionInput] = (*TransitionCommand)(nil)

// Execute applies the transition.
func (c *TransitionCommand) Execute(ctx context.Context, msg TransitionInput) error {
	if c.resolver == nil {
		return errors.New("transition command requires app state resolver")
	}
	if msg.Prop == "" {
		return errors.New("transition command requires prop")
	}
	state, err := c.resolver.AppState(msg.SessionKey)
	if err != nil {
		return err
	}
	if err := state.Transitions().Set(msg.Prop, msg.Value); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.transition", map[string]any{
		"session": msg.SessionKey,
		"prop":    msg.Prop,
	})
	return nil
}
