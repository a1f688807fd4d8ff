package dashboard

import (
	"fmt"
	"sort"
	"sync"
)

// DashboardProvider describes one saved object type listed on the dashboards
// landing page.
type DashboardProvider struct {
	AppID                   string                 `json:"appId" yaml:"app_id"`
	SavedObjectsType        string                 `json:"savedObjectsType" yaml:"saved_objects_type"`
	SavedObjectsName        string                 `json:"savedObjectsName" yaml:"saved_objects_name"`
	CreateLinkText          string                 `json:"createLinkText" yaml:"create_link_text"`
	CreateLinkTextLocalized map[string]string      `json:"createLinkTextLocalized,omitempty" yaml:"create_link_text_localized,omitempty"`
	CreateSortText          string                 `json:"createSortText" yaml:"create_sort_text"`
	CreateURL               string                 `json:"createUrl" yaml:"create_url"`
	ViewURLPathFn           func(id string) string `json:"-" yaml:"-"`
	EditURLPathFn           func(id string) string `json:"-" yaml:"-"`
}

// CreateLinkTextForLocale returns the localized create link text.
func (p DashboardProvider) CreateLinkTextForLocale(locale string) string {
	return ResolveLocalizedValue(p.CreateLinkTextLocalized, locale, p.CreateLinkText)
}

// ViewURL returns the route that opens id in view mode.
func (p DashboardProvider) ViewURL(id string) string {
	if p.ViewURLPathFn != nil {
		return p.ViewURLPathFn(id)
	}
	return EditURL(id)
}

// EditURL returns the route that opens id for editing.
func (p DashboardProvider) EditURL(id string) string {
	if p.EditURLPathFn != nil {
		return p.EditURLPathFn(id)
	}
	return EditURL(id)
}

// DefaultDashboardProvider is the built-in provider for dashboard saved objects.
func DefaultDashboardProvider() DashboardProvider {
	return DashboardProvider{
		AppID:            AppID,
		SavedObjectsType: SavedObjectType,
		SavedObjectsName: defaultMessages[MsgSavedDashboardName],
		CreateLinkText:   defaultMessages[MsgCreateLinkText],
		CreateSortText:   defaultMessages[MsgCreateLinkText],
		CreateURL:        "#" + CreateNewDashboardURL,
	}
}

// Registry keeps the providers contributing items to the listing page.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]DashboardProvider
}

// NewRegistry builds a registry holding the default dashboard provider.
func NewRegistry() *Registry {
	reg := &Registry{providers: map[string]DashboardProvider{}}
	_ = reg.Register(DefaultDashboardProvider())
	return reg
}

// Register stores a provider keyed by its saved object type.
func (r *Registry) Register(p DashboardProvider) error {
	if p.SavedObjectsType == "" {
		return fmt.Errorf("dashboard: provider saved object type is required")
	}
	if p.AppID == "" {
		return fmt.Errorf("dashboard: provider %s app id is required", p.SavedObjectsType)
	}
	p.CreateLinkTextLocalized = normalizeLocaleMap(p.CreateLinkTextLocalized)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.SavedObjectsType] = p
	return nil
}

// Provider fetches a provider by saved object type.
func (r *Registry) Provider(savedObjectsType string) (DashboardProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[savedObjectsType]
	return p, ok
}

// Providers returns every provider ordered by CreateSortText.
func (r *Registry) Providers() []DashboardProvider {
	r.mu.RLock()
	out := make([]DashboardProvider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreateSortText == out[j].CreateSortText {
			return out[i].SavedObjectsType < out[j].SavedObjectsType
		}
		return out[i].CreateSortText < out[j].CreateSortText
	})
	return out
}
