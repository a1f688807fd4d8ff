package appstate

import (
	"context"
	"sync"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
)

// Status is the lifecycle state of a container.
type Status int

const (
	StatusUninitialized Status = iota
	StatusSynced
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusSynced:
		return "synced"
	case StatusStopped:
		return "stopped"
	default:
		return "uninitialized"
	}
}

// Snapshot is a published state together with its version.
type Snapshot struct {
	Version uint64
	State   AppState
}

// Container holds the app state of one loaded dashboard. Transitions are
// serialized: each one runs its synchronous observers (the URL writer) before the
// next transition is accepted.
type Container struct {
	dispatchMu sync.Mutex

	mu        sync.RWMutex
	state     AppState
	version   uint64
	status    Status
	observers []func(AppState)
	subs      map[int]chan Snapshot
	nextSub   int
	telemetry dashboard.Telemetry
}

// NewContainer builds an unsynchronized container.
func NewContainer(initial AppState) *Container {
	return &Container{
		state:     initial.Clone(),
		subs:      make(map[int]chan Snapshot),
		telemetry: dashboard.NormalizeTelemetry(nil),
	}
}

// Get returns a copy of the current state.
func (c *Container) Get() AppState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone()
}

// Version increases by one for every accepted transition.
func (c *Container) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Status reports the lifecycle state.
func (c *Container) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Transitions exposes the state transitions.
func (c *Container) Transitions() Transitions {
	return Transitions{c: c}
}

// Subscribe streams snapshots after each transition. A slow reader only sees the
// latest snapshot. The channel closes when the container stops or cancel runs.
func (c *Container) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan Snapshot, 1)
	if c.status == StatusStopped {
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

// observe registers a synchronous observer run inside every dispatch.
func (c *Container) observe(fn func(AppState)) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

func (c *Container) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *Container) dispatch(prop string, fn func(AppState) (AppState, error)) error {
	changed, err := c.apply(fn, true)
	if err == nil && changed {
		c.telemetry.Record(context.Background(), dashboard.EventTransition, map[string]any{"prop": prop})
	}
	return err
}

// replace swaps in a state read from the URL without echoing it back.
func (c *Container) replace(next AppState) {
	_, _ = c.apply(func(AppState) (AppState, error) { return next, nil }, false)
}

func (c *Container) apply(fn func(AppState) (AppState, error), notifyObservers bool) (bool, error) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.mu.Lock()
	if c.status == StatusStopped {
		c.mu.Unlock()
		return false, nil
	}
	next, err := fn(c.state.Clone())
	if err != nil {
		c.mu.Unlock()
		return false, err
	}
	c.state = next.Clone()
	c.version++
	snap := Snapshot{Version: c.version, State: next.Clone()}
	var observers []func(AppState)
	if notifyObservers {
		observers = append(observers, c.observers...)
	}
	c.mu.Unlock()

	for _, obs := range observers {
		obs(snap.State.Clone())
	}
	c.publish(snap)
	return true, nil
}

func (c *Container) publish(snap Snapshot) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (c *Container) stop() {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusStopped {
		return
	}
	c.status = StatusStopped
	c.observers = nil
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}
