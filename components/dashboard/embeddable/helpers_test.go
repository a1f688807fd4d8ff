package embeddable

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
)

var testRange = dashboard.TimeRange{From: "now-7d", To: "now"}

// stubRenderer renders each template as a short, inspectable string.
type stubRenderer struct {
	mu    sync.Mutex
	calls []string
}

func (r *stubRenderer) Render(name string, data any, out ...io.Writer) (string, error) {
	payload, _ := data.(map[string]any)
	r.mu.Lock()
	r.calls = append(r.calls, name)
	r.mu.Unlock()

	var b strings.Builder
	switch name {
	case ContainerTemplate:
		fmt.Fprintf(&b, "container:%v", payload["id"])
		panels, _ := payload["panels"].([]map[string]any)
		for _, p := range panels {
			fmt.Fprintf(&b, "[%v]", p["html"])
		}
	case PanelTemplate:
		fmt.Fprintf(&b, "panel:%v:%v", payload["id"], payload["reload"])
	case ErrorTemplate:
		fmt.Fprintf(&b, "error:%v:%v", payload["id"], payload["message"])
	default:
		return "", fmt.Errorf("unknown template %s", name)
	}
	if len(out) > 0 && out[0] != nil {
		_, _ = out[0].Write([]byte(b.String()))
	}
	return b.String(), nil
}

func (r *stubRenderer) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == name {
			n++
		}
	}
	return n
}

// recordingChild keeps every input it receives.
type recordingChild struct {
	mu        sync.Mutex
	inputs    []ChildInput
	renders   int
	destroyed bool
	output    Output
	panicOn   bool
}

func (c *recordingChild) ID() string   { return c.Input().ID }
func (c *recordingChild) Type() string { return c.Input().Type }

func (c *recordingChild) Input() ChildInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inputs[len(c.inputs)-1]
}

func (c *recordingChild) UpdateInput(input ChildInput) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputs = append(c.inputs, input)
}

func (c *recordingChild) received() []ChildInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ChildInput(nil), c.inputs...)
}

func (c *recordingChild) Output() Output {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.output
}

func (c *recordingChild) Render(context.Context) (string, error) {
	c.mu.Lock()
	c.renders++
	id := c.inputs[len(c.inputs)-1].ID
	panicking := c.panicOn
	c.mu.Unlock()
	if panicking {
		panic("boom")
	}
	return "rec:" + id, nil
}

func (c *recordingChild) Destroy() {
	c.mu.Lock()
	c.destroyed = true
	c.mu.Unlock()
}

// recorderRegistry registers a "recorder" type and returns the children it built.
func recorderRegistry(configure func(*recordingChild)) (*ChildRegistry, func(id string) *recordingChild) {
	var mu sync.Mutex
	built := map[string]*recordingChild{}
	registry := NewChildRegistry(nil)
	_ = registry.Register(ChildFactory{
		Type: "recorder",
		Create: func(input ChildInput, _ Renderer) (Embeddable, error) {
			child := &recordingChild{inputs: []ChildInput{input}}
			if configure != nil {
				configure(child)
			}
			mu.Lock()
			built[input.ID] = child
			mu.Unlock()
			return child, nil
		},
	})
	return registry, func(id string) *recordingChild {
		mu.Lock()
		defer mu.Unlock()
		return built[id]
	}
}

type recordingNode struct {
	mu       sync.Mutex
	html     string
	mounts   int
	updates  int
	unmounts int
}

func (n *recordingNode) Mount(html string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.html = html
	n.mounts++
	return nil
}

func (n *recordingNode) Update(html string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.html = html
	n.updates++
	return nil
}

func (n *recordingNode) Unmount() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.html = ""
	n.unmounts++
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func panel(typ string, x, y int, config map[string]any) PanelState {
	return PanelState{
		Type:          typ,
		ExplicitInput: ExplicitInput{EmbeddableConfig: config},
		GridData:      dashboard.GridData{X: x, Y: y, W: 24, H: 15},
	}
}

func ptr[T any](v T) *T { return &v }
