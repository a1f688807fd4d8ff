package dashboard

import "context"

// CapabilitiesFunc adapts a function to CapabilitiesProvider.
type CapabilitiesFunc func(ctx context.Context) (Capabilities, error)

func (fn CapabilitiesFunc) Capabilities(ctx context.Context) (Capabilities, error) {
	if fn == nil {
		return Capabilities{}, nil
	}
	return fn(ctx)
}

// StaticCapabilities always reports the same snapshot.
type StaticCapabilities Capabilities

func (s StaticCapabilities) Capabilities(context.Context) (Capabilities, error) {
	return Capabilities(s), nil
}

// CanEdit reports whether the snapshot allows creating and writing dashboards.
func (c Capabilities) CanEdit() bool {
	return c.CreateNew && c.ShowWriteControls
}
