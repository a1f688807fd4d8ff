package editor

import (
	"errors"
	"sync"

	"github.com/goliatone/go-dashboard-editor/components/dashboard/embeddable"
)

// Node is the mount target the controller owns.
type Node = embeddable.Node

var errNotMounted = errors.New("editor: node is not mounted")

// BufferNode keeps the mounted markup in memory. It backs headless rendering and
// HTTP responses.
type BufferNode struct {
	mu      sync.RWMutex
	html    string
	mounted bool
	mounts  int
	updates int
}

// NewBufferNode returns an empty node.
func NewBufferNode() *BufferNode {
	return &BufferNode{}
}

func (n *BufferNode) Mount(html string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.html = html
	n.mounted = true
	n.mounts++
	return nil
}

func (n *BufferNode) Update(html string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.mounted {
		return errNotMounted
	}
	n.html = html
	n.updates++
	return nil
}

func (n *BufferNode) Unmount() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.html = ""
	n.mounted = false
	return nil
}

// HTML returns the current markup.
func (n *BufferNode) HTML() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.html
}

// Mounted reports whether the node holds content.
func (n *BufferNode) Mounted() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.mounted
}

// Mounts counts Mount calls.
func (n *BufferNode) Mounts() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.mounts
}

// Updates counts Update calls.
func (n *BufferNode) Updates() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.updates
}
