package dashboard

import (
	"context"
	"fmt"
	"strings"
)

// TranslationService resolves message keys for a locale. go-i18n or go-cms backed
// engines can satisfy it.
type TranslationService interface {
	Translate(ctx context.Context, key, locale string, args map[string]any) (string, error)
}

// Message keys used for chrome and toast copy.
const (
	MsgLandingBreadcrumb  = "dashboard.breadcrumb.landing"
	MsgCreateBreadcrumb   = "dashboard.breadcrumb.create"
	MsgEditBreadcrumb     = "dashboard.breadcrumb.edit"
	MsgLegacyCreateWarn   = "dashboard.toast.legacy_create_url"
	MsgFailedToLoad       = "dashboard.toast.load_failed"
	MsgCreateLinkText     = "dashboard.listing.create"
	MsgSavedDashboardName = "dashboard.listing.name"
)

var defaultMessages = map[string]string{
	MsgLandingBreadcrumb:  "Dashboard",
	MsgCreateBreadcrumb:   "New Dashboard",
	MsgEditBreadcrumb:     "Editing {title}",
	MsgLegacyCreateWarn:   `The url "dashboard/create" was removed in 6.0. Please update your bookmarks.`,
	MsgFailedToLoad:       "Failed to load the dashboard",
	MsgCreateLinkText:     "Dashboard",
	MsgSavedDashboardName: "Dashboard",
}

// Messages renders user-facing copy. A nil *Messages uses the built-in English text.
type Messages struct {
	Translator TranslationService
	Locale     string
}

// Text resolves key, substituting {name} placeholders from args.
func (m *Messages) Text(ctx context.Context, key string, args map[string]any) string {
	fallback := interpolate(defaultMessages[key], args)
	if m == nil {
		if fallback == "" {
			return key
		}
		return fallback
	}
	return translateOrFallback(ctx, m.Translator, key, m.Locale, fallback, args)
}

// LandingBreadcrumbs is the root trail pointing at the listing page.
func (m *Messages) LandingBreadcrumbs(ctx context.Context) []Breadcrumb {
	return []Breadcrumb{{
		Text: m.Text(ctx, MsgLandingBreadcrumb, nil),
		Href: "#" + LandingPagePath,
	}}
}

// CreateBreadcrumbs extends the landing trail for an unsaved dashboard.
func (m *Messages) CreateBreadcrumbs(ctx context.Context) []Breadcrumb {
	return append(m.LandingBreadcrumbs(ctx), Breadcrumb{
		Text: m.Text(ctx, MsgCreateBreadcrumb, nil),
	})
}

// EditBreadcrumbs extends the landing trail for a saved dashboard.
func (m *Messages) EditBreadcrumbs(ctx context.Context, title string) []Breadcrumb {
	return append(m.LandingBreadcrumbs(ctx), Breadcrumb{
		Text: m.Text(ctx, MsgEditBreadcrumb, map[string]any{"title": title}),
	})
}

// ResolveLocalizedValue picks the best entry for locale. Keys match
// case-insensitively and "es-mx" falls back to "es", then "default".
func ResolveLocalizedValue(values map[string]string, locale, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	for _, candidate := range localeCandidates(locale) {
		for key, value := range values {
			if value != "" && strings.EqualFold(key, candidate) {
				return value
			}
		}
	}
	return fallback
}

func normalizeLocaleMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for key, value := range values {
		key = normalizeLocale(key)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func localeCandidates(locale string) []string {
	locale = normalizeLocale(locale)
	if locale == "" {
		return []string{"default"}
	}
	out := []string{locale}
	if idx := strings.Index(locale, "-"); idx > 0 {
		out = append(out, locale[:idx])
	}
	return append(out, "default")
}

func normalizeLocale(locale string) string {
	return strings.TrimSpace(strings.ToLower(locale))
}

func translateOrFallback(ctx context.Context, svc TranslationService, key, locale, fallback string, args map[string]any) string {
	if svc != nil {
		if translated, err := svc.Translate(ctx, key, locale, args); err == nil && translated != "" {
			return translated
		}
	}
	if fallback != "" {
		return fallback
	}
	return key
}

func interpolate(text string, args map[string]any) string {
	if text == "" || len(args) == 0 {
		return text
	}
	pairs := make([]string, 0, len(args)*2)
	for name, value := range args {
		pairs = append(pairs, "{"+name+"}", toString(value))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
