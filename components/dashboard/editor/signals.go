package editor

import "sync"

// Signals carries the editor's events to whoever constructed it. Rendered closes
// once, so listeners attached late still observe it. DirtyState delivers the latest
// dirty flag; intermediate values may be skipped.
type Signals struct {
	renderedOnce sync.Once
	rendered     chan struct{}

	mu    sync.Mutex
	dirty chan bool
	last  *bool
}

// NewSignals builds an unsignaled set.
func NewSignals() *Signals {
	return &Signals{
		rendered: make(chan struct{}),
		dirty:    make(chan bool, 1),
	}
}

// Rendered closes after the first successful render.
func (s *Signals) Rendered() <-chan struct{} {
	return s.rendered
}

// DirtyState streams dirty flag changes.
func (s *Signals) DirtyState() <-chan bool {
	return s.dirty
}

// IsDirty reports the last emitted flag.
func (s *Signals) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last != nil && *s.last
}

func (s *Signals) markRendered() {
	s.renderedOnce.Do(func() { close(s.rendered) })
}

// SetDirty emits v unless it equals the previous value.
func (s *Signals) SetDirty(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil && *s.last == v {
		return
	}
	s.last = &v
	select {
	case s.dirty <- v:
		return
	default:
	}
	select {
	case <-s.dirty:
	default:
	}
	s.dirty <- v
}
