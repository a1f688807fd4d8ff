package dashboard

import (
	"context"
	"sync"
)

// NotificationsClient is the slice of go-notifications (or similar) used to publish
// dashboard events.
type NotificationsClient interface {
	PublishDashboardEvent(ctx context.Context, event Event) error
}

// NotificationsHook forwards dashboard events to an external notifications client.
type NotificationsHook struct {
	Client  NotificationsClient
	Channel string
}

// DashboardUpdated implements RefreshHook.
func (h *NotificationsHook) DashboardUpdated(ctx context.Context, event Event) error {
	if h == nil || h.Client == nil {
		return nil
	}
	if h.Channel != "" {
		meta := cloneMap(event.Metadata)
		if meta == nil {
			meta = map[string]any{}
		}
		meta["channel"] = h.Channel
		event.Metadata = meta
	}
	return h.Client.PublishDashboardEvent(ctx, event)
}

// RefreshHooks fans an event out to several hooks, stopping at the first error.
type RefreshHooks []RefreshHook

func (hooks RefreshHooks) DashboardUpdated(ctx context.Context, event Event) error {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook.DashboardUpdated(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

type noopRefreshHook struct{}

func (noopRefreshHook) DashboardUpdated(context.Context, Event) error { return nil }

type noopNotifications struct{}

func (noopNotifications) AddWarning(string)            {}
func (noopNotifications) AddDanger(string)             {}
func (noopNotifications) AddError(error, ToastOptions) {}

// NormalizeNotifications returns a no-op sink for nil.
func NormalizeNotifications(n Notifications) Notifications {
	if n == nil {
		return noopNotifications{}
	}
	return n
}

// Toast is a recorded notification.
type Toast struct {
	Kind    string
	Message string
	Err     error
	Options ToastOptions
}

// ToastRecorder keeps every notification it receives.
type ToastRecorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *ToastRecorder) AddWarning(msg string) {
	r.add(Toast{Kind: "warning", Message: msg})
}

func (r *ToastRecorder) AddDanger(msg string) {
	r.add(Toast{Kind: "danger", Message: msg})
}

func (r *ToastRecorder) AddError(err error, opts ToastOptions) {
	msg := opts.ToastMessage
	if msg == "" && err != nil {
		msg = err.Error()
	}
	r.add(Toast{Kind: "error", Message: msg, Err: err, Options: opts})
}

// Toasts returns a copy of the recorded notifications.
func (r *ToastRecorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

func (r *ToastRecorder) add(t Toast) {
	r.mu.Lock()
	r.toasts = append(r.toasts, t)
	r.mu.Unlock()
}

type noopChrome struct{}

func (noopChrome) SetBreadcrumbs([]Breadcrumb) {}
func (noopChrome) SetDocTitle(string)          {}

// NormalizeChrome returns a no-op chrome for nil.
func NormalizeChrome(c Chrome) Chrome {
	if c == nil {
		return noopChrome{}
	}
	return c
}

// ChromeRecorder remembers the latest breadcrumbs and document title.
type ChromeRecorder struct {
	mu          sync.Mutex
	breadcrumbs []Breadcrumb
	title       string
}

func (c *ChromeRecorder) SetBreadcrumbs(list []Breadcrumb) {
	c.mu.Lock()
	c.breadcrumbs = append([]Breadcrumb(nil), list...)
	c.mu.Unlock()
}

func (c *ChromeRecorder) SetDocTitle(title string) {
	c.mu.Lock()
	c.title = title
	c.mu.Unlock()
}

func (c *ChromeRecorder) Breadcrumbs() []Breadcrumb {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Breadcrumb(nil), c.breadcrumbs...)
}

func (c *ChromeRecorder) DocTitle() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}
