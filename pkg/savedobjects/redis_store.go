package savedobjects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	dashboard "github.com/goliatone/go-dashboard-editor/components/dashboard"
)

// DefaultRedisPrefix namespaces dashboard keys.
const DefaultRedisPrefix = "dashboards"

// RedisStore keeps each dashboard as a JSON string under {prefix}:doc:{id} and
// tracks ids in the {prefix}:ids set.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

var _ dashboard.Loader = (*RedisStore)(nil)

// NewRedisStore builds a store. An empty prefix uses DefaultRedisPrefix.
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) docKey(id string) string { return s.prefix + ":doc:" + id }
func (s *RedisStore) indexKey() string        { return s.prefix + ":ids" }

// Get loads a dashboard. An empty id returns a new defaulted document.
func (s *RedisStore) Get(ctx context.Context, id string) (*dashboard.SavedDashboard, error) {
	if id == "" {
		return dashboard.NewSavedDashboard(""), nil
	}
	raw, err := s.client.Get(ctx, s.docKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, dashboard.NewNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("savedobjects: redis get %s: %w", id, err)
	}
	return decodeDocument(id, raw)
}

// Save writes the document and indexes its id. Hits survive overwrites.
func (s *RedisStore) Save(ctx context.Context, doc *dashboard.SavedDashboard) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("%w: document is required", dashboard.ErrInvalidRequest)
	}
	stored := doc.Copy()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if prev, err := s.Get(ctx, stored.ID); err == nil {
		stored.Hits = prev.Hits
	} else if !dashboard.IsNotFound(err) {
		return "", err
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("savedobjects: encode %s: %w", stored.ID, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.docKey(stored.ID), data, 0)
		pipe.SAdd(ctx, s.indexKey(), stored.ID)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("savedobjects: redis save %s: %w", stored.ID, err)
	}
	return stored.ID, nil
}

// Delete removes ids. Unknown ids are reported after the known ones are removed.
func (s *RedisStore) Delete(ctx context.Context, ids ...string) error {
	var errs []error
	for _, id := range ids {
		removed, err := s.client.Del(ctx, s.docKey(id)).Result()
		if err != nil {
			errs = append(errs, fmt.Errorf("savedobjects: redis delete %s: %w", id, err))
			continue
		}
		if err := s.client.SRem(ctx, s.indexKey(), id).Err(); err != nil {
			errs = append(errs, fmt.Errorf("savedobjects: redis unindex %s: %w", id, err))
			continue
		}
		if removed == 0 {
			errs = append(errs, dashboard.NewNotFoundError(id))
		}
	}
	return errors.Join(errs...)
}

// Find reads every indexed dashboard and applies the search and paging in memory.
func (s *RedisStore) Find(ctx context.Context, opts dashboard.FindOptions) ([]*dashboard.SavedDashboard, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("savedobjects: redis list: %w", err)
	}
	if len(ids) == 0 {
		return []*dashboard.SavedDashboard{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("savedobjects: redis mget: %w", err)
	}
	docs := make([]*dashboard.SavedDashboard, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		doc, err := decodeDocument(ids[i], []byte(raw))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return dashboard.ApplyFind(docs, opts), nil
}

func decodeDocument(id string, raw []byte) (*dashboard.SavedDashboard, error) {
	var doc dashboard.SavedDashboard
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("savedobjects: decode %s: %w", id, err)
	}
	doc.ID = id
	return &doc, nil
}
