package editor

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/embeddable"
)

var (
	errMissingContainer = errors.New("editor: container is required")
	errMissingNode      = errors.New("editor: node is required")
	errDestroyed        = errors.New("editor: controller destroyed")
)

// RenderProps are the inputs the host pushes on every render. Nil fields are left
// as they are.
type RenderProps struct {
	TimeRange *dashboard.TimeRange
	Filters   []dashboard.Filter
	Query     *dashboard.Query
}

// Options wires a controller.
type Options struct {
	Container *embeddable.Container
	Node      Node
	Signals   *Signals
	Logger    *zap.Logger
}

// Controller binds one container to one node. The container is shared with the
// caller; the node belongs to the controller.
type Controller struct {
	mu        sync.Mutex
	container *embeddable.Container
	node      Node
	signals   *Signals
	log       *zap.Logger

	mounted   bool
	destroyed bool
	baseline  editableState
	unwatch   func()
	watchDone chan struct{}
}

// NewController builds an unmounted controller.
func NewController(opts Options) (*Controller, error) {
	if opts.Container == nil {
		return nil, errMissingContainer
	}
	if opts.Node == nil {
		return nil, errMissingNode
	}
	if opts.Signals == nil {
		opts.Signals = NewSignals()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Controller{
		container: opts.Container,
		node:      opts.Node,
		signals:   opts.Signals,
		log:       opts.Logger,
	}, nil
}

// Signals returns the controller's signal set.
func (c *Controller) Signals() *Signals { return c.signals }

// Container returns the container the controller renders.
func (c *Controller) Container() *embeddable.Container { return c.container }

// Render pushes props into the container and renders it. The node is mounted on
// the first call and updated in place afterwards.
func (c *Controller) Render(ctx context.Context, props RenderProps) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return errDestroyed
	}
	if props.TimeRange != nil || props.Filters != nil || props.Query != nil {
		c.container.UpdateInput(embeddable.InputChanges{
			TimeRange: props.TimeRange,
			Filters:   props.Filters,
			Query:     props.Query,
		})
	}
	if c.mounted {
		return c.container.Refresh(ctx)
	}
	if err := c.container.Mount(ctx, c.node); err != nil {
		return err
	}
	c.mounted = true
	c.baseline = editableFrom(c.container.Input())
	c.watch()
	c.signals.markRendered()
	c.log.Debug("dashboard rendered", zap.String("dashboard_id", c.container.ID()))
	return nil
}

// MarkClean makes the current container input the new clean baseline, after a save
// for instance.
func (c *Controller) MarkClean() {
	c.mu.Lock()
	c.baseline = editableFrom(c.container.Input())
	c.mu.Unlock()
	c.signals.SetDirty(false)
}

// Destroy unmounts and destroys the container. Calling it before Render, or twice,
// does nothing.
func (c *Controller) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	mounted := c.mounted
	unwatch, done := c.unwatch, c.watchDone
	c.mounted = false
	c.mu.Unlock()

	if !mounted {
		return
	}
	if unwatch != nil {
		unwatch()
		<-done
	}
	c.container.Destroy()
	c.log.Debug("dashboard editor destroyed", zap.String("dashboard_id", c.container.ID()))
}

// watch compares every container input with the clean baseline.
func (c *Controller) watch() {
	updates, cancel := c.container.Subscribe()
	done := make(chan struct{})
	c.unwatch = cancel
	c.watchDone = done
	go func() {
		defer close(done)
		for input := range updates {
			c.mu.Lock()
			dirty := !reflect.DeepEqual(editableFrom(input), c.baseline)
			c.mu.Unlock()
			c.signals.SetDirty(dirty)
		}
	}()
}

// editableState is the part of the input a save would persist.
type editableState struct {
	Title           string
	Description     string
	Panels          map[string]embeddable.PanelState
	UseMargins      bool
	HidePanelTitles bool
	Query           dashboard.Query
	Filters         []dashboard.Filter
}

func editableFrom(in embeddable.ContainerInput) editableState {
	filters := in.Filters
	if len(filters) == 0 {
		filters = nil
	}
	return editableState{
		Title:           in.Title,
		Description:     in.Description,
		Panels:          in.Panels,
		UseMargins:      in.UseMargins,
		HidePanelTitles: in.HidePanelTitles,
		Query:           in.Query,
		Filters:         filters,
	}
}
