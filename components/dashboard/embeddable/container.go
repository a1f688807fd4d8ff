package embeddable

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
)

var (
	errNilNode   = errors.New("embeddable: mount node is required")
	errDestroyed = errors.New("embeddable: destroyed")
)

// ContainerOptions wires the collaborators of a container. Nil fields fall back to
// defaults.
type ContainerOptions struct {
	Registry            *ChildRegistry
	Renderer            Renderer
	Cache               RenderCache
	Logger              *zap.Logger
	Telemetry           dashboard.Telemetry
	StateTransfer       dashboard.StateTransfer
	DefaultIndexPattern *IndexPattern
	Clock               func() time.Time
}

// Container owns the child embeddables of one dashboard. UpdateInput is the single
// mutation entry point; every child receives its full derived input under the same
// lock, so no child sees a half-applied update.
type Container struct {
	mu        sync.RWMutex
	input     ContainerInput
	order     []string
	children  map[string]Embeddable
	node      Node
	destroyed bool
	subs      map[int]chan ContainerInput
	nextSub   int

	registry      *ChildRegistry
	renderer      Renderer
	cache         RenderCache
	log           *zap.Logger
	telemetry     dashboard.Telemetry
	stateTransfer dashboard.StateTransfer
	fallback      *IndexPattern
	now           func() time.Time
}

// NewContainer builds a container and its children from input.
func NewContainer(input ContainerInput, opts ContainerOptions) *Container {
	if opts.Registry == nil {
		opts.Registry = NewChildRegistry(nil)
	}
	if opts.Cache == nil {
		opts.Cache = noCache{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	c := &Container{
		input:         normalizeInput(input),
		children:      make(map[string]Embeddable),
		subs:          make(map[int]chan ContainerInput),
		registry:      opts.Registry,
		renderer:      opts.Renderer,
		cache:         opts.Cache,
		log:           opts.Logger,
		telemetry:     dashboard.NormalizeTelemetry(opts.Telemetry),
		stateTransfer: opts.StateTransfer,
		fallback:      opts.DefaultIndexPattern,
		now:           opts.Clock,
	}
	c.mu.Lock()
	c.reconcileLocked()
	c.mu.Unlock()
	return c
}

func normalizeInput(in ContainerInput) ContainerInput {
	out := cloneInput(in)
	if out.Panels == nil {
		out.Panels = map[string]PanelState{}
	}
	if out.Query.Language == "" {
		out.Query.Language = dashboard.DefaultQueryLanguage
	}
	if out.ViewMode == "" {
		out.ViewMode = dashboard.ViewModeView
	}
	return out
}

func (c *Container) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.input.ID
}

func (c *Container) Type() string { return dashboard.ContainerType }

// StateTransfer returns the channel handed to the container at construction.
func (c *Container) StateTransfer() dashboard.StateTransfer { return c.stateTransfer }

// Input returns a copy of the current input.
func (c *Container) Input() ContainerInput {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneInput(c.input)
}

// UpdateInput applies a batched change. Panels present in changes replace the
// panel map; removed panels are destroyed and new ones built.
func (c *Container) UpdateInput(changes InputChanges) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	applyChanges(&c.input, changes)
	c.reconcileLocked()
	snapshot := cloneInput(c.input)
	c.mu.Unlock()
	c.publish(snapshot)
}

// Reload bumps the reload token without touching the logical input.
func (c *Container) Reload(ctx context.Context) int64 {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return 0
	}
	token := c.now().UnixMilli()
	if token <= c.input.LastReloadRequestTime {
		token = c.input.LastReloadRequestTime + 1
	}
	c.input.LastReloadRequestTime = token
	c.reconcileLocked()
	snapshot := cloneInput(c.input)
	id := c.input.ID
	c.mu.Unlock()

	c.publish(snapshot)
	c.telemetry.Record(ctx, dashboard.EventContainerReload, map[string]any{
		"dashboard_id": id,
		"token":        token,
	})
	return token
}

// ChildIDs lists the children in grid order.
func (c *Container) ChildIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Child returns the child with the given panel id.
func (c *Container) Child(id string) (Embeddable, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	child, ok := c.children[id]
	return child, ok
}

// Output aggregates the children's errors and index patterns. Index patterns are
// deduplicated by id; when no child declares one the default pattern is used.
func (c *Container) Output() ContainerOutput {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := ContainerOutput{Title: c.input.Title, IndexPatterns: []IndexPattern{}}
	seen := map[string]bool{}
	for _, id := range c.order {
		child := c.children[id]
		o := child.Output()
		if o.Error != nil {
			out.Errors = append(out.Errors, PanelError{PanelID: id, Message: o.Error.Error()})
		}
		for _, p := range o.IndexPatterns {
			if p.ID == "" || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			out.IndexPatterns = append(out.IndexPatterns, p)
		}
	}
	if len(out.IndexPatterns) == 0 && c.fallback != nil {
		out.IndexPatterns = append(out.IndexPatterns, *c.fallback)
	}
	return out
}

// Subscribe streams the input after every update or reload. Slow readers only see
// the latest input; the channel closes on Destroy or cancel.
func (c *Container) Subscribe() (<-chan ContainerInput, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan ContainerInput, 1)
	if c.destroyed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

func (c *Container) publish(input ContainerInput) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range c.subs {
		select {
		case ch <- input:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- input:
		default:
		}
	}
}

// Mount renders into node. Mounting the bound node again updates it in place.
func (c *Container) Mount(ctx context.Context, node Node) error {
	if node == nil {
		return errNilNode
	}
	markup, err := c.Render(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return errDestroyed
	}
	if c.node == node {
		return node.Update(markup)
	}
	if c.node != nil {
		_ = c.node.Unmount()
	}
	if err := node.Mount(markup); err != nil {
		c.node = nil
		return err
	}
	c.node = node
	return nil
}

// Refresh re-renders into the bound node, if any.
func (c *Container) Refresh(ctx context.Context) error {
	c.mu.RLock()
	node := c.node
	c.mu.RUnlock()
	if node == nil {
		return nil
	}
	return c.Mount(ctx, node)
}

// Render produces the container markup. A failing child renders as an error in its
// own slot.
func (c *Container) Render(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.RLock()
	if c.destroyed {
		c.mu.RUnlock()
		return "", errDestroyed
	}
	input := cloneInput(c.input)
	ids := append([]string(nil), c.order...)
	children := make([]Embeddable, len(ids))
	for i, id := range ids {
		children[i] = c.children[id]
	}
	c.mu.RUnlock()

	renderer := c.renderer
	if renderer == nil {
		r, err := defaultRenderer()
		if err != nil {
			return "", fmt.Errorf("embeddable: template renderer: %w", err)
		}
		renderer = r
	}

	panels := make([]map[string]any, 0, len(ids))
	for i, id := range ids {
		if input.ExpandedPanelID != "" && id != input.ExpandedPanelID {
			continue
		}
		child := children[i]
		grid := input.Panels[id].GridData
		panels = append(panels, map[string]any{
			"id":       id,
			"type":     child.Type(),
			"html":     c.renderChild(ctx, child),
			"column":   grid.X + 1,
			"row":      grid.Y + 1,
			"width":    max(grid.W, 1),
			"height":   max(grid.H, 1),
			"expanded": id == input.ExpandedPanelID,
		})
	}
	return renderer.Render(ContainerTemplate, map[string]any{
		"id":                input.ID,
		"title":             input.Title,
		"view_mode":         string(input.ViewMode),
		"use_margins":       input.UseMargins,
		"full_screen":       input.IsFullScreenMode,
		"hide_panel_titles": input.HidePanelTitles,
		"panels":            panels,
	})
}

func (c *Container) renderChild(ctx context.Context, child Embeddable) (markup string) {
	input := child.Input()
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("panel render panicked", zap.String("panel_id", input.ID), zap.Any("panic", r))
			markup, _ = NewErrorEmbeddable(fmt.Errorf("embeddable: panel %s: %v", input.ID, r), input, c).Render(ctx)
		}
	}()
	if _, failed := child.(*ErrorEmbeddable); failed {
		out, _ := child.Render(ctx)
		return out
	}
	out, err := c.cache.GetOrRender(renderKey(input), func() (string, error) {
		return child.Render(ctx)
	})
	if err != nil {
		c.log.Warn("panel render failed", zap.String("panel_id", input.ID), zap.Error(err))
		out, _ = NewErrorEmbeddable(err, input, c).Render(ctx)
	}
	return out
}

// Destroy tears down the children and the mounted node. It is safe to call twice.
func (c *Container) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	children := c.children
	node := c.node
	c.children = map[string]Embeddable{}
	c.order = nil
	c.node = nil
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	for _, child := range children {
		child.Destroy()
	}
	if node != nil {
		_ = node.Unmount()
	}
}

// Destroyed reports whether Destroy ran.
func (c *Container) Destroyed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.destroyed
}

// reconcileLocked brings the children in line with the panel map and pushes each
// one its derived input.
func (c *Container) reconcileLocked() {
	for id, child := range c.children {
		panel, ok := c.input.Panels[id]
		if !ok || child.Input().Type != panel.Type {
			child.Destroy()
			delete(c.children, id)
		}
	}
	c.order = sortedPanelIDs(c.input.Panels)
	for _, id := range c.order {
		input := c.childInput(id, c.input.Panels[id])
		if child, ok := c.children[id]; ok {
			// Failed panels get another chance on every update.
			if _, failed := child.(*ErrorEmbeddable); !failed {
				child.UpdateInput(input)
				continue
			}
			child.Destroy()
		}
		c.children[id] = c.buildChild(input)
	}
}

func (c *Container) buildChild(input ChildInput) (child Embeddable) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("embeddable: build panel %s: %v", input.ID, r)
			c.log.Error("panel construction panicked", zap.String("panel_id", input.ID), zap.Any("panic", r))
			child = NewErrorEmbeddable(err, input, c)
		}
	}()
	built, err := c.registry.Build(input, c.renderer)
	if err != nil {
		c.log.Warn("panel could not be built",
			zap.String("panel_id", input.ID),
			zap.String("panel_type", input.Type),
			zap.Error(err),
		)
		return NewErrorEmbeddable(err, input, c)
	}
	return built
}

func (c *Container) childInput(id string, p PanelState) ChildInput {
	in := c.input
	out := ChildInput{
		ID:                    id,
		Type:                  p.Type,
		SavedObjectID:         p.ExplicitInput.SavedObjectID,
		Title:                 p.ExplicitInput.Title,
		HidePanelTitles:       in.HidePanelTitles,
		EmbeddableConfig:      cloneConfig(p.ExplicitInput.EmbeddableConfig),
		GridData:              p.GridData,
		Filters:               dashboard.CloneFilters(in.Filters),
		Query:                 in.Query,
		TimeRange:             in.TimeRange,
		ViewMode:              in.ViewMode,
		LastReloadRequestTime: in.LastReloadRequestTime,
	}
	if out.Filters == nil {
		out.Filters = []dashboard.Filter{}
	}
	if in.RefreshConfig != nil {
		rc := *in.RefreshConfig
		out.RefreshConfig = &rc
	}
	return out
}

func applyChanges(in *ContainerInput, ch InputChanges) {
	if ch.TimeRange != nil {
		in.TimeRange = *ch.TimeRange
	}
	if ch.Filters != nil {
		in.Filters = dashboard.CloneFilters(ch.Filters)
	}
	if ch.Query != nil {
		in.Query = *ch.Query
	}
	if ch.RefreshConfig != nil {
		rc := *ch.RefreshConfig
		in.RefreshConfig = &rc
	}
	if ch.ViewMode != nil {
		in.ViewMode = *ch.ViewMode
	}
	if ch.IsFullScreenMode != nil {
		in.IsFullScreenMode = *ch.IsFullScreenMode
	}
	if ch.UseMargins != nil {
		in.UseMargins = *ch.UseMargins
	}
	if ch.HidePanelTitles != nil {
		in.HidePanelTitles = *ch.HidePanelTitles
	}
	if ch.ExpandedPanelID != nil {
		in.ExpandedPanelID = *ch.ExpandedPanelID
	}
	if ch.Title != nil {
		in.Title = *ch.Title
	}
	if ch.Description != nil {
		in.Description = *ch.Description
	}
	if ch.Panels != nil {
		in.Panels = clonePanelStates(ch.Panels)
	}
}
