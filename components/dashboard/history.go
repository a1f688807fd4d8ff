package dashboard

import (
	"net/url"
	"slices"
	"strings"
	"sync"
)

// HistoryAction describes how the current location was reached.
type HistoryAction string

const (
	HistoryPush    HistoryAction = "PUSH"
	HistoryReplace HistoryAction = "REPLACE"
	HistoryPop     HistoryAction = "POP"
)

// Location is an app-relative route plus its query string.
type Location struct {
	Pathname string
	Search   string
	Hash     string
}

// ParseLocation splits a route like "/view/abc?_a=(...)" into a Location.
func ParseLocation(raw string) Location {
	var loc Location
	if idx := strings.Index(raw, "#"); idx >= 0 {
		loc.Hash = raw[idx:]
		raw = raw[:idx]
	}
	if idx := strings.Index(raw, "?"); idx >= 0 {
		loc.Search = raw[idx:]
		raw = raw[:idx]
	}
	loc.Pathname = raw
	return loc
}

// Query parses the search string.
func (l Location) Query() url.Values {
	values, err := url.ParseQuery(strings.TrimPrefix(l.Search, "?"))
	if err != nil {
		return url.Values{}
	}
	return values
}

// WithQuery returns a copy of the location using values as its search string.
func (l Location) WithQuery(values url.Values) Location {
	out := l
	if encoded := values.Encode(); encoded != "" {
		out.Search = "?" + encoded
	} else {
		out.Search = ""
	}
	return out
}

// String renders the location as a route.
func (l Location) String() string {
	return l.Pathname + l.Search + l.Hash
}

// History is the navigation handle shared by the URL sync engine and the load
// orchestration.
type History interface {
	Location() Location
	Push(loc Location)
	Replace(loc Location)
	Listen(fn func(Location, HistoryAction)) (unlisten func())
}

// MemoryHistory keeps navigation entries in memory. Listeners run synchronously on
// the goroutine that navigated.
type MemoryHistory struct {
	mu        sync.RWMutex
	entries   []Location
	index     int
	listeners map[int]func(Location, HistoryAction)
	next      int
}

// NewMemoryHistory starts a history at the given route.
func NewMemoryHistory(initial string) *MemoryHistory {
	if initial == "" {
		initial = "/"
	}
	return &MemoryHistory{
		entries:   []Location{ParseLocation(initial)},
		listeners: make(map[int]func(Location, HistoryAction)),
	}
}

// Location returns the current entry.
func (h *MemoryHistory) Location() Location {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.entries[h.index]
}

// Push appends a new entry, dropping any forward entries.
func (h *MemoryHistory) Push(loc Location) {
	h.mu.Lock()
	h.entries = append(h.entries[:h.index+1], loc)
	h.index = len(h.entries) - 1
	h.mu.Unlock()
	h.notify(loc, HistoryPush)
}

// Replace overwrites the current entry.
func (h *MemoryHistory) Replace(loc Location) {
	h.mu.Lock()
	h.entries[h.index] = loc
	h.mu.Unlock()
	h.notify(loc, HistoryReplace)
}

// Back moves to the previous entry, reporting false at the start of history.
func (h *MemoryHistory) Back() bool {
	return h.Go(-1)
}

// Go moves delta entries, reporting false when out of range.
func (h *MemoryHistory) Go(delta int) bool {
	h.mu.Lock()
	target := h.index + delta
	if target < 0 || target >= len(h.entries) {
		h.mu.Unlock()
		return false
	}
	h.index = target
	loc := h.entries[target]
	h.mu.Unlock()
	h.notify(loc, HistoryPop)
	return true
}

// Len returns the number of entries.
func (h *MemoryHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Listen registers a navigation listener.
func (h *MemoryHistory) Listen(fn func(Location, HistoryAction)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.listeners[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

func (h *MemoryHistory) notify(loc Location, action HistoryAction) {
	h.mu.RLock()
	ids := make([]int, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	slices.Sort(ids)
	for _, id := range ids {
		h.mu.RLock()
		fn, ok := h.listeners[id]
		h.mu.RUnlock()
		if ok && fn != nil {
			fn(loc, action)
		}
	}
}
