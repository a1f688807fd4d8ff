package dashboard

import (
	"context"
	"errors"
	"fmt"
)

// SeedDashboards saves every manifest entry through loader. Entries are converted
// with ConvertFromSerialized, so seeded documents look exactly like saved ones.
// Failures are collected and the remaining entries are still attempted.
func SeedDashboards(ctx context.Context, loader Loader, doc *ManifestDocument) ([]string, error) {
	if loader == nil {
		return nil, errMissingLoader
	}
	if doc == nil {
		return nil, fmt.Errorf("dashboard: manifest document is nil")
	}
	var (
		ids     []string
		seedErr error
	)
	for _, item := range doc.Dashboards {
		saved, err := ConvertFromSerialized(item.Serialized())
		if err != nil {
			seedErr = errors.Join(seedErr, fmt.Errorf("dashboard: seed %s: %w", item.ID, err))
			continue
		}
		id, err := loader.Save(ctx, saved)
		if err != nil {
			seedErr = errors.Join(seedErr, fmt.Errorf("dashboard: seed %s: %w", item.ID, err))
			continue
		}
		ids = append(ids, id)
	}
	return ids, seedErr
}
