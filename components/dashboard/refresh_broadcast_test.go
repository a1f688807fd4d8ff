package dashboard

import (
	"context"
	"errors"
	"testing"
)

func TestBroadcastHookSubscribe(t *testing.T) {
	hook := NewBroadcastHook()
	ch, cancel := hook.Subscribe()
	defer cancel()
	event := Event{DashboardID: "dash-1", Reason: "save"}
	if err := hook.DashboardUpdated(context.Background(), event); err != nil {
		t.Fatalf("DashboardUpdated returned error: %v", err)
	}
	select {
	case e := <-ch:
		if e.DashboardID != event.DashboardID || e.Reason != "save" {
			t.Fatalf("unexpected event %+v", e)
		}
	default:
		t.Fatalf("expected event to be delivered")
	}
}

func TestBroadcastHookCancelClosesChannel(t *testing.T) {
	hook := NewBroadcastHook()
	ch, cancel := hook.Subscribe()
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after cancel")
	}
	if err := hook.DashboardUpdated(context.Background(), Event{DashboardID: "x"}); err != nil {
		t.Fatalf("publish after cancel: %v", err)
	}
}

func TestBroadcastHookDropsWhenSubscriberIsFull(t *testing.T) {
	hook := NewBroadcastHook()
	ch, cancel := hook.Subscribe()
	defer cancel()
	for i := 0; i < broadcastBuffer+3; i++ {
		if err := hook.DashboardUpdated(context.Background(), Event{DashboardID: "dash"}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	if len(ch) != broadcastBuffer {
		t.Fatalf("expected %d buffered events, got %d", broadcastBuffer, len(ch))
	}
}

type recordingClient struct {
	events []Event
	err    error
}

func (c *recordingClient) PublishDashboardEvent(_ context.Context, event Event) error {
	c.events = append(c.events, event)
	return c.err
}

func TestRefreshHooksStopOnError(t *testing.T) {
	failing := &recordingClient{err: errors.New("down")}
	after := &recordingClient{}
	hooks := RefreshHooks{nil, &NotificationsHook{Client: failing, Channel: "ops"}, &NotificationsHook{Client: after}}
	err := hooks.DashboardUpdated(context.Background(), Event{DashboardID: "dash-1"})
	if err == nil {
		t.Fatalf("expected error from failing hook")
	}
	if len(failing.events) != 1 || failing.events[0].Metadata["channel"] != "ops" {
		t.Fatalf("expected channel metadata, got %+v", failing.events)
	}
	if len(after.events) != 0 {
		t.Fatalf("expected later hooks to be skipped")
	}
}
