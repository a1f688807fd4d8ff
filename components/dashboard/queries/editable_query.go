package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
)

// IsEditableInput is empty; capabilities are read fresh on every query.
type IsEditableInput struct{}

type editableChecker interface {
	IsEditable(ctx context.Context) bool
}

// IsEditableQuery reports whether the current user may create or edit dashboards.
type IsEditableQuery struct {
	checker editableChecker
}

// NewIsEditableQuery builds the query.
func NewIsEditableQuery(checker editableChecker) *IsEditableQuery {
	return &IsEditableQuery{checker: checker}
}

var _ gocommand.Querier[IsEditableInput, bool] = (*IsEditableQuery)(nil)

// Query checks the capabilities.
func (q *IsEditableQuery) Query(ctx context.Context, _ IsEditableInput) (bool, error) {
	if q.checker == nil {
		return false, nil
	}
	return q.checker.IsEditable(ctx), nil
}
