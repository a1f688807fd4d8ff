package dashboard

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// InMemoryLoader is a concurrency-safe Loader for tests, demos and headless use.
type InMemoryLoader struct {
	mu   sync.RWMutex
	docs map[string]*SavedDashboard
}

// NewInMemoryLoader builds a loader pre-populated with docs.
func NewInMemoryLoader(docs ...*SavedDashboard) *InMemoryLoader {
	l := &InMemoryLoader{docs: make(map[string]*SavedDashboard, len(docs))}
	for _, doc := range docs {
		if doc == nil || doc.ID == "" {
			continue
		}
		l.docs[doc.ID] = doc.Copy()
	}
	return l
}

// Get returns a copy of the stored document. An empty id yields a new defaulted document.
func (l *InMemoryLoader) Get(ctx context.Context, id string) (*SavedDashboard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		return NewSavedDashboard(""), nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	doc, ok := l.docs[id]
	if !ok {
		return nil, NewNotFoundError(id)
	}
	return doc.Copy(), nil
}

// Save stores a copy of doc, assigning a UUID when the id is empty.
func (l *InMemoryLoader) Save(ctx context.Context, doc *SavedDashboard) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if doc == nil {
		return "", errors.New("dashboard: document is required")
	}
	stored := doc.Copy()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.docs[stored.ID]; ok {
		stored.Hits = prev.Hits
	}
	l.docs[stored.ID] = stored
	return stored.ID, nil
}

// Delete removes ids. Unknown ids are reported after the known ones are removed.
func (l *InMemoryLoader) Delete(ctx context.Context, ids ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	for _, id := range ids {
		if _, ok := l.docs[id]; !ok {
			errs = append(errs, NewNotFoundError(id))
			continue
		}
		delete(l.docs, id)
	}
	return errors.Join(errs...)
}

// Find filters by case-insensitive title or description match, sorted by title.
func (l *InMemoryLoader) Find(ctx context.Context, opts FindOptions) ([]*SavedDashboard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	docs := make([]*SavedDashboard, 0, len(l.docs))
	for _, doc := range l.docs {
		docs = append(docs, doc.Copy())
	}
	l.mu.RUnlock()
	return ApplyFind(docs, opts), nil
}

// ApplyFind filters docs by a case-insensitive title or description match, sorts
// them by title then id, and applies 1-based paging. PerPage <= 0 disables paging.
// Loaders without server-side search use it to honor FindOptions.
func ApplyFind(docs []*SavedDashboard, opts FindOptions) []*SavedDashboard {
	search := strings.ToLower(strings.TrimSpace(opts.Search))
	matches := make([]*SavedDashboard, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(doc.Title), search) &&
			!strings.Contains(strings.ToLower(doc.Description), search) {
			continue
		}
		matches = append(matches, doc)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Title == matches[j].Title {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Title < matches[j].Title
	})
	return paginate(matches, opts.Page, opts.PerPage)
}

func paginate[T any](items []T, page, perPage int) []T {
	if perPage <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return items[:0]
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
