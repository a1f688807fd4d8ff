package dashboard

import (
	"net/url"
	"strings"
)

const (
	// AppID is the application id the dashboards app registers under.
	AppID = "dashboards"
	// SavedObjectType is the saved object type of dashboard documents.
	SavedObjectType = "dashboard"
	// ContainerType is the embeddable type of the dashboard container.
	ContainerType = "dashboard"

	LandingPagePath       = "/list"
	CreateNewDashboardURL = "/create"
	// LegacyCreateID is the id that pre 6.0 "dashboard/create" links resolve to.
	LegacyCreateID = "create"
	// AppStateKey is the query key holding the URL-synchronized app state.
	AppStateKey = "_a"

	viewPathPrefix = "/view/"
)

// EditURL returns the route of a saved dashboard.
func EditURL(id string) string {
	return viewPathPrefix + url.PathEscape(id)
}

// DashboardIDFromPath extracts the dashboard id from a /view/{id} route. Any other
// route yields an empty id.
func DashboardIDFromPath(pathname string) string {
	if !strings.HasPrefix(pathname, viewPathPrefix) {
		return ""
	}
	rest := strings.TrimPrefix(pathname, viewPathPrefix)
	if idx := strings.Index(rest, "/"); idx >= 0 {
		rest = rest[:idx]
	}
	id, err := url.PathUnescape(rest)
	if err != nil {
		return rest
	}
	return id
}
