package embeddable

import (
	"context"
	"fmt"
	"html"
	"sync"
)

// ErrorEmbeddable stands in for a child or a whole container that could not be
// built. It carries the failure together with the original input and parent.
type ErrorEmbeddable struct {
	mu        sync.Mutex
	err       error
	input     ChildInput
	original  *ContainerInput
	parent    *Container
	renderer  Renderer
	node      Node
	destroyed bool
}

// NewErrorEmbeddable wraps a failed child.
func NewErrorEmbeddable(err error, input ChildInput, parent *Container) *ErrorEmbeddable {
	e := &ErrorEmbeddable{err: err, input: input, parent: parent}
	if parent != nil {
		e.renderer = parent.renderer
	}
	return e
}

func newContainerError(err error, input ContainerInput, parent *Container, renderer Renderer) *ErrorEmbeddable {
	original := cloneInput(input)
	e := NewErrorEmbeddable(err, ChildInput{
		ID:        input.ID,
		Type:      ErrorType,
		Filters:   original.Filters,
		Query:     input.Query,
		TimeRange: input.TimeRange,
		ViewMode:  input.ViewMode,
	}, parent)
	e.original = &original
	if renderer != nil {
		e.renderer = renderer
	}
	return e
}

// Err returns the failure.
func (e *ErrorEmbeddable) Err() error { return e.err }

// Parent returns the container the failure belongs to, if any.
func (e *ErrorEmbeddable) Parent() *Container { return e.parent }

// OriginalInput returns the container input a failed factory call was given.
func (e *ErrorEmbeddable) OriginalInput() (ContainerInput, bool) {
	if e.original == nil {
		return ContainerInput{}, false
	}
	return cloneInput(*e.original), true
}

func (e *ErrorEmbeddable) ID() string   { return e.input.ID }
func (e *ErrorEmbeddable) Type() string { return ErrorType }

func (e *ErrorEmbeddable) Input() ChildInput {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.input
}

// UpdateInput keeps the latest input so the slot stays positioned.
func (e *ErrorEmbeddable) UpdateInput(input ChildInput) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	input.Type = e.input.Type
	e.input = input
}

func (e *ErrorEmbeddable) Output() Output {
	return Output{Error: e.err}
}

func (e *ErrorEmbeddable) message() string {
	if e.err == nil {
		return "unknown error"
	}
	return e.err.Error()
}

// Render never fails; a broken renderer falls back to plain markup.
func (e *ErrorEmbeddable) Render(context.Context) (string, error) {
	if e.renderer != nil {
		out, err := e.renderer.Render(ErrorTemplate, map[string]any{
			"id":      e.input.ID,
			"message": e.message(),
		})
		if err == nil {
			return out, nil
		}
	}
	return fmt.Sprintf(`<article class="dashboard-panel dashboard-panel--error" data-panel-id="%s" role="alert">%s</article>`,
		html.EscapeString(e.input.ID), html.EscapeString(e.message())), nil
}

// Mount renders the error into node.
func (e *ErrorEmbeddable) Mount(ctx context.Context, node Node) error {
	if node == nil {
		return errNilNode
	}
	markup, _ := e.Render(ctx)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return errDestroyed
	}
	if e.node == node {
		return node.Update(markup)
	}
	if err := node.Mount(markup); err != nil {
		return err
	}
	e.node = node
	return nil
}

// Destroy unmounts the error, once.
func (e *ErrorEmbeddable) Destroy() {
	e.mu.Lock()
	node := e.node
	already := e.destroyed
	e.destroyed = true
	e.node = nil
	e.mu.Unlock()
	if !already && node != nil {
		_ = node.Unmount()
	}
}
