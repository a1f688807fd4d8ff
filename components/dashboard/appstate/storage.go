package appstate

import (
	"fmt"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
	"github.com/sakura-internet/go-rison/v4"
)

// URLStateStorage reads and writes keyed state in the current URL.
type URLStateStorage interface {
	// Get decodes the value stored under key into target. It reports false when
	// the key is missing or empty.
	Get(key string, target any) (bool, error)
	// Set encodes value under key, replacing the current history entry when
	// replace is true and pushing a new one otherwise.
	Set(key string, value any, replace bool) error
	// Listen calls fn after every navigation.
	Listen(key string, fn func()) (unlisten func())
}

// HistoryStorage keeps rison-encoded state in the query string of a History.
type HistoryStorage struct {
	history dashboard.History
}

// NewHistoryStorage builds a storage over h.
func NewHistoryStorage(h dashboard.History) *HistoryStorage {
	return &HistoryStorage{history: h}
}

func (s *HistoryStorage) Get(key string, target any) (bool, error) {
	raw := s.history.Location().Query().Get(key)
	if raw == "" {
		return false, nil
	}
	if err := rison.Unmarshal([]byte(raw), target, rison.Rison); err != nil {
		return false, fmt.Errorf("appstate: decode %s: %w", key, err)
	}
	return true, nil
}

func (s *HistoryStorage) Set(key string, value any, replace bool) error {
	encoded, err := Encode(value)
	if err != nil {
		return fmt.Errorf("appstate: encode %s: %w", key, err)
	}
	current := s.history.Location()
	values := current.Query()
	values.Set(key, encoded)
	next := current.WithQuery(values)
	if next.Search == current.Search {
		return nil
	}
	if replace {
		s.history.Replace(next)
	} else {
		s.history.Push(next)
	}
	return nil
}

func (s *HistoryStorage) Listen(_ string, fn func()) func() {
	return s.history.Listen(func(dashboard.Location, dashboard.HistoryAction) {
		fn()
	})
}

// Encode renders a value in rison, the encoding used for the URL state.
func Encode(value any) (string, error) {
	out, err := rison.Marshal(value, rison.Rison)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// URLValue returns the encoded URL form of state, honoring the view-mode rule that
// panels are never written.
func URLValue(state AppState) (string, error) {
	return Encode(toURL(state))
}
