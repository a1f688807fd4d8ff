package dashboard

import "context"

// ActivityContext identifies who triggered a dashboard change.
type ActivityContext struct {
	ActorID  string
	UserID   string
	TenantID string
}

type activityContextKey struct{}

// ContextWithActivity attaches actor identifiers to ctx.
func ContextWithActivity(ctx context.Context, meta ActivityContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, activityContextKey{}, meta)
}

// ActivityFromContext returns the identifiers stored by ContextWithActivity.
func ActivityFromContext(ctx context.Context) (ActivityContext, bool) {
	if ctx == nil {
		return ActivityContext{}, false
	}
	meta, ok := ctx.Value(activityContextKey{}).(ActivityContext)
	return meta, ok
}
