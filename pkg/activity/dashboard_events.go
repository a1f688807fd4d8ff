package activity

import "time"

// Verbs emitted by the dashboards service.
const (
	VerbDashboardSaved   = "dashboard.save"
	VerbDashboardCreated = "dashboard.create"
	VerbDashboardDeleted = "dashboard.delete"

	ObjectTypeDashboard = "dashboard"
)

// DashboardEventInput carries the fields shared by dashboard lifecycle events.
type DashboardEventInput struct {
	ActorID     string
	UserID      string
	TenantID    string
	DashboardID string
	Title       string
	Channel     string
	Metadata    map[string]any
	OccurredAt  time.Time
}

// BuildDashboardSavedEvent describes an update to an existing dashboard.
func BuildDashboardSavedEvent(input DashboardEventInput) Event {
	return buildDashboardEvent(VerbDashboardSaved, input)
}

// BuildDashboardCreatedEvent describes the first save of a dashboard.
func BuildDashboardCreatedEvent(input DashboardEventInput) Event {
	return buildDashboardEvent(VerbDashboardCreated, input)
}

// BuildDashboardDeletedEvent describes a dashboard removal.
func BuildDashboardDeletedEvent(input DashboardEventInput) Event {
	return buildDashboardEvent(VerbDashboardDeleted, input)
}

func buildDashboardEvent(verb string, input DashboardEventInput) Event {
	meta := CloneMetadata(input.Metadata)
	if input.Title != "" {
		if meta == nil {
			meta = map[string]any{}
		}
		meta["title"] = input.Title
	}
	return NormalizeEvent(Event{
		Verb:           verb,
		ActorID:        input.ActorID,
		UserID:         input.UserID,
		TenantID:       input.TenantID,
		ObjectType:     ObjectTypeDashboard,
		ObjectID:       input.DashboardID,
		Channel:        input.Channel,
		DefinitionCode: verb,
		Metadata:       meta,
		OccurredAt:     input.OccurredAt,
	})
}
