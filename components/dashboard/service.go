package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goliatone/go-dashboard-editor/pkg/activity"
	"go.uber.org/zap"
)

// ServiceOptions configures the dashboard Service. Collaborators are interfaces so hosts can
// swap implementations without importing internal packages.
type ServiceOptions struct {
	Loader         Loader
	Providers      *Registry
	RefreshHook    RefreshHook
	Telemetry      Telemetry
	ActivityHooks  activity.Hooks
	ActivityConfig activity.Config
	Logger         *zap.Logger
	Validator      *validator.Validate
}

// Service implements the persisted dashboard flows: load, save, delete and list.
type Service struct {
	opts     ServiceOptions
	activity *activity.Emitter
	log      *zap.Logger
}

// NewService builds a Service with safe defaults.
func NewService(opts ServiceOptions) *Service {
	if opts.RefreshHook == nil {
		opts.RefreshHook = noopRefreshHook{}
	}
	if opts.Providers == nil {
		opts.Providers = NewRegistry()
	}
	if opts.Validator == nil {
		opts.Validator = validator.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.Telemetry = NormalizeTelemetry(opts.Telemetry)
	return &Service{
		opts:     opts,
		activity: activity.NewEmitter(opts.ActivityHooks, opts.ActivityConfig),
		log:      opts.Logger.Named("dashboard.service"),
	}
}

// Loader exposes the configured saved dashboard loader.
func (s *Service) Loader() Loader {
	return s.opts.Loader
}

// Load fetches and converts a dashboard. An empty id returns a new dashboard.
func (s *Service) Load(ctx context.Context, id string) (SerializedDashboard, error) {
	loader, err := s.loader()
	if err != nil {
		return SerializedDashboard{}, err
	}
	doc, err := loader.Get(ctx, id)
	if err != nil {
		s.recordLoadFailure(ctx, id, err)
		return SerializedDashboard{}, err
	}
	defer doc.Destroy()
	out, err := ConvertToSerialized(doc)
	if err != nil {
		s.recordLoadFailure(ctx, id, err)
		return SerializedDashboard{}, err
	}
	s.opts.Telemetry.Record(ctx, EventLoad, map[string]any{"dashboard_id": id})
	return out, nil
}

// SaveRequest carries the dashboard to persist plus the save dialog choices.
type SaveRequest struct {
	Dashboard       SerializedDashboard `validate:"-"`
	Title           string              `validate:"required,max=256"`
	Description     string              `validate:"max=4096"`
	CopyOnSave      bool
	TimeRestore     bool
	TimeRange       *TimeRange
	RefreshInterval *RefreshInterval
}

// SaveResult reports the saved id and the dashboard as stored.
type SaveResult struct {
	ID        string
	Created   bool
	Dashboard SerializedDashboard
}

// Save persists the dashboard. A save without an id, or with CopyOnSave, creates a
// new document.
func (s *Service) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	loader, err := s.loader()
	if err != nil {
		return SaveResult{}, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validate(req); err != nil {
		return SaveResult{}, err
	}

	model := NewDashboard(&req.Dashboard)
	if req.CopyOnSave {
		model = NewDashboard(nil)
		model.SetState(StateFromSerialized(req.Dashboard))
	}
	title, description := req.Title, req.Description
	timeRestore := req.TimeRestore
	model.SetState(DashboardState{
		Title:          &title,
		Description:    &description,
		TimeRestore:    &timeRestore,
		LastSavedTitle: &title,
	})
	serialized := model.Serialize()
	serialized.TimeFrom, serialized.TimeTo, serialized.RefreshInterval = "", "", nil
	if req.TimeRestore && req.TimeRange != nil {
		serialized.TimeFrom = req.TimeRange.From
		serialized.TimeTo = req.TimeRange.To
		if req.RefreshInterval != nil {
			ri := *req.RefreshInterval
			serialized.RefreshInterval = &ri
		}
	}

	doc, err := ConvertFromSerialized(serialized)
	if err != nil {
		return SaveResult{}, err
	}
	id, err := loader.Save(ctx, doc)
	if err != nil {
		s.log.Error("save dashboard failed", zap.String("dashboard_id", serialized.ID), zap.Error(err))
		return SaveResult{}, fmt.Errorf("dashboard: save %s: %w", title, err)
	}
	created := serialized.ID == ""
	serialized.ID = id

	reason := "save"
	if created {
		reason = "create"
	}
	if err := s.opts.RefreshHook.DashboardUpdated(ctx, Event{
		DashboardID: id,
		Title:       title,
		Reason:      reason,
		OccurredAt:  time.Now(),
	}); err != nil {
		return SaveResult{}, err
	}
	s.emitActivity(ctx, created, false, id, title, map[string]any{"copy_on_save": req.CopyOnSave})
	s.opts.Telemetry.Record(ctx, EventSave, map[string]any{
		"dashboard_id": id,
		"created":      created,
		"panels":       len(serialized.Panels),
	})
	s.log.Info("dashboard saved", zap.String("dashboard_id", id), zap.Bool("created", created))
	return SaveResult{ID: id, Created: created, Dashboard: serialized}, nil
}

// Delete removes the given dashboards.
func (s *Service) Delete(ctx context.Context, ids ...string) error {
	loader, err := s.loader()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return errMissingID
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return errMissingID
		}
	}
	if err := loader.Delete(ctx, ids...); err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.opts.RefreshHook.DashboardUpdated(ctx, Event{
			DashboardID: id,
			Reason:      "delete",
			OccurredAt:  time.Now(),
		}); err != nil {
			return err
		}
		s.emitActivity(ctx, false, true, id, "", nil)
	}
	s.opts.Telemetry.Record(ctx, EventDelete, map[string]any{"count": len(ids)})
	return nil
}

// ListItem is a row on the dashboards landing page.
type ListItem struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Hits        int    `json:"hits"`
	ViewURL     string `json:"viewUrl"`
	EditURL     string `json:"editUrl"`
}

// List returns the listing rows for the dashboard saved object type.
func (s *Service) List(ctx context.Context, opts FindOptions) ([]ListItem, error) {
	loader, err := s.loader()
	if err != nil {
		return nil, err
	}
	docs, err := loader.Find(ctx, opts)
	if err != nil {
		return nil, err
	}
	provider, ok := s.opts.Providers.Provider(SavedObjectType)
	if !ok {
		provider = DefaultDashboardProvider()
	}
	items := make([]ListItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, ListItem{
			ID:          doc.ID,
			Type:        provider.SavedObjectsType,
			Title:       doc.Title,
			Description: doc.Description,
			Hits:        doc.Hits,
			ViewURL:     provider.ViewURL(doc.ID),
			EditURL:     provider.EditURL(doc.ID),
		})
	}
	return items, nil
}

// Providers returns the listing providers.
func (s *Service) Providers() []DashboardProvider {
	return s.opts.Providers.Providers()
}

// NotifyDashboardUpdated runs the refresh hook for transports and commands.
func (s *Service) NotifyDashboardUpdated(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := s.opts.RefreshHook.DashboardUpdated(ctx, event); err != nil {
		return err
	}
	s.opts.Telemetry.Record(ctx, "dashboard.event", map[string]any{
		"dashboard_id": event.DashboardID,
		"reason":       event.Reason,
	})
	return nil
}

// Record forwards to the configured telemetry sink.
func (s *Service) Record(ctx context.Context, event string, payload map[string]any) {
	s.opts.Telemetry.Record(ctx, event, payload)
}

func (s *Service) loader() (Loader, error) {
	if s.opts.Loader == nil {
		return nil, errMissingLoader
	}
	return s.opts.Loader, nil
}

func (s *Service) validate(req SaveRequest) error {
	err := s.opts.Validator.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

func (s *Service) recordLoadFailure(ctx context.Context, id string, err error) {
	if IsNotFound(err) {
		s.log.Warn("dashboard not found", zap.String("dashboard_id", id))
	} else {
		s.log.Error("load dashboard failed", zap.String("dashboard_id", id), zap.Error(err))
	}
	s.opts.Telemetry.Record(ctx, EventLoadFailed, map[string]any{
		"dashboard_id": id,
		"error":        err.Error(),
		"reason":       FailureReason(err),
	})
}

func (s *Service) emitActivity(ctx context.Context, created, deleted bool, id, title string, meta map[string]any) {
	if !s.activity.Enabled() {
		return
	}
	actor, _ := ActivityFromContext(ctx)
	input := activity.DashboardEventInput{
		ActorID:     actor.ActorID,
		UserID:      actor.UserID,
		TenantID:    actor.TenantID,
		DashboardID: id,
		Title:       title,
		Metadata:    meta,
	}
	var evt activity.Event
	switch {
	case deleted:
		evt = activity.BuildDashboardDeletedEvent(input)
	case created:
		evt = activity.BuildDashboardCreatedEvent(input)
	default:
		evt = activity.BuildDashboardSavedEvent(input)
	}
	if err := s.activity.Emit(ctx, evt); err != nil {
		s.log.Warn("activity emit failed", zap.String("verb", evt.Verb), zap.Error(err))
	}
}
