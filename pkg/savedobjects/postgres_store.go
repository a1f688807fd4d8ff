package savedobjects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	dashboard "github.com/goliatone/go-dashboard-editor/components/dashboard"
)

// PostgresSchema creates the table used by PostgresStore.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS dashboards (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	hits        INTEGER NOT NULL DEFAULT 0,
	document    JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// DB is the subset of *pgxpool.Pool used by PostgresStore.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is a dashboard Loader over a pgx pool.
type PostgresStore struct {
	db DB
}

var _ dashboard.Loader = (*PostgresStore)(nil)

// NewPostgresStore builds a store over db, usually a *pgxpool.Pool.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the dashboards table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("savedobjects: ensure schema: %w", err)
	}
	return nil
}

// Get loads a dashboard. An empty id returns a new defaulted document.
func (s *PostgresStore) Get(ctx context.Context, id string) (*dashboard.SavedDashboard, error) {
	if id == "" {
		return dashboard.NewSavedDashboard(""), nil
	}
	var (
		raw  []byte
		hits int
	)
	err := s.db.QueryRow(ctx, `SELECT document, hits FROM dashboards WHERE id = $1`, id).Scan(&raw, &hits)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, dashboard.NewNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("savedobjects: query dashboard %s: %w", id, err)
	}
	doc, err := decodeDocument(id, raw)
	if err != nil {
		return nil, err
	}
	doc.Hits = hits
	return doc, nil
}

// Save upserts the document. Hits are owned by the table and never overwritten.
func (s *PostgresStore) Save(ctx context.Context, doc *dashboard.SavedDashboard) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("%w: document is required", dashboard.ErrInvalidRequest)
	}
	stored := doc.Copy()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("savedobjects: encode %s: %w", stored.ID, err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO dashboards (id, title, description, document, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			document = EXCLUDED.document,
			updated_at = now()`,
		stored.ID, stored.Title, stored.Description, data,
	)
	if err != nil {
		return "", fmt.Errorf("savedobjects: upsert dashboard %s: %w", stored.ID, err)
	}
	return stored.ID, nil
}

// Delete removes ids in one statement. Unknown ids are reported after the known
// ones are removed.
func (s *PostgresStore) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	rows, err := s.db.Query(ctx, `DELETE FROM dashboards WHERE id = ANY($1) RETURNING id`, ids)
	if err != nil {
		return fmt.Errorf("savedobjects: delete dashboards: %w", err)
	}
	defer rows.Close()
	gone := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("savedobjects: scan deleted id: %w", err)
		}
		gone[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("savedobjects: delete dashboards: %w", err)
	}
	var errs []error
	for _, id := range ids {
		if _, ok := gone[id]; !ok {
			errs = append(errs, dashboard.NewNotFoundError(id))
		}
	}
	return errors.Join(errs...)
}

// Find searches title and description with ILIKE, ordered by title then id.
func (s *PostgresStore) Find(ctx context.Context, opts dashboard.FindOptions) ([]*dashboard.SavedDashboard, error) {
	sql, args := findQuery(opts)
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("savedobjects: find dashboards: %w", err)
	}
	defer rows.Close()
	out := []*dashboard.SavedDashboard{}
	for rows.Next() {
		var (
			id   string
			raw  []byte
			hits int
		)
		if err := rows.Scan(&id, &raw, &hits); err != nil {
			return nil, fmt.Errorf("savedobjects: scan dashboard: %w", err)
		}
		doc, err := decodeDocument(id, raw)
		if err != nil {
			return nil, err
		}
		doc.Hits = hits
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("savedobjects: find dashboards: %w", err)
	}
	return out, nil
}

func findQuery(opts dashboard.FindOptions) (string, []any) {
	sql := `SELECT id, document, hits FROM dashboards`
	var args []any
	if opts.Search != "" {
		args = append(args, "%"+opts.Search+"%")
		sql += ` WHERE title ILIKE $1 OR description ILIKE $1`
	}
	sql += ` ORDER BY title, id`
	if opts.PerPage > 0 {
		page := opts.Page
		if page < 1 {
			page = 1
		}
		args = append(args, opts.PerPage, (page-1)*opts.PerPage)
		sql += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}
	return sql, args
}
