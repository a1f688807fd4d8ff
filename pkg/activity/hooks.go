package activity

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"
)

// Event is a single dashboard activity entry. Identifiers stay strings so callers
// do not need to agree on a UUID type.
type Event struct {
	Verb           string
	ActorID        string
	UserID         string
	TenantID       string
	ObjectType     string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	OccurredAt     time.Time
}

// ActivityHook receives normalized events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans an event out to every hook.
type Hooks []ActivityHook

// Enabled reports whether any hook is registered.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify normalizes the event and delivers it to each hook. Events without a verb,
// object type or object id are dropped. Hook failures are joined.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	evt := NormalizeEvent(event)
	if !evt.valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims identifiers, copies collections and stamps OccurredAt.
func NormalizeEvent(event Event) Event {
	out := event
	out.Verb = strings.TrimSpace(event.Verb)
	out.ActorID = strings.TrimSpace(event.ActorID)
	out.UserID = strings.TrimSpace(event.UserID)
	out.TenantID = strings.TrimSpace(event.TenantID)
	out.ObjectType = strings.TrimSpace(event.ObjectType)
	out.ObjectID = strings.TrimSpace(event.ObjectID)
	out.Channel = strings.TrimSpace(event.Channel)
	out.DefinitionCode = strings.TrimSpace(event.DefinitionCode)
	out.Metadata = CloneMetadata(event.Metadata)
	out.Recipients = nil
	if len(event.Recipients) > 0 {
		out.Recipients = append([]string(nil), event.Recipients...)
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now()
	}
	return out
}

func (e Event) valid() bool {
	return e.Verb != "" && e.ObjectType != "" && e.ObjectID != ""
}

// CloneMetadata returns a shallow copy, or nil for empty input.
func CloneMetadata(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}
