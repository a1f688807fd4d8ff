package savedobjects

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	dashboard "github.com/goliatone/go-dashboard-editor/components/dashboard"
)

const savedObjectsPath = "/api/saved_objects"

// BreakerConfig tunes the circuit breaker guarding remote calls.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	MinRequests      uint32
	FailureThreshold float64
}

// DefaultBreakerConfig returns the breaker settings used when none are given.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		MinRequests:      5,
		FailureThreshold: 0.8,
	}
}

// HTTPConfig configures the saved objects HTTP client.
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Breaker    *BreakerConfig
	// DeleteConcurrency bounds parallel deletes. Zero means 4.
	DeleteConcurrency int
	Logger            *zap.Logger
}

// HTTPClient is a dashboard Loader backed by a remote saved objects REST API.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker
	concurrency int
	log         *zap.Logger
}

var _ dashboard.Loader = (*HTTPClient)(nil)

// NewHTTPClient builds a client for the saved objects API rooted at cfg.BaseURL.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("savedobjects: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	breakerCfg := DefaultBreakerConfig()
	if cfg.Breaker != nil {
		breakerCfg = *cfg.Breaker
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("savedobjects.http")
	concurrency := cfg.DeleteConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &HTTPClient{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		client:      httpClient,
		breaker:     newBreaker("savedobjects", breakerCfg, logger),
		concurrency: concurrency,
		log:         logger,
	}, nil
}

func newBreaker(name string, cfg BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Missing documents and caller mistakes say nothing about the remote's health.
		IsSuccessful: func(err error) bool {
			return err == nil || isStatus(err, http.StatusNotFound) || dashboard.IsInvalid(err)
		},
	})
}

// BreakerState reports the breaker state, mostly for health checks.
func (c *HTTPClient) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Get fetches a dashboard. An empty id returns a new defaulted document.
func (c *HTTPClient) Get(ctx context.Context, id string) (*dashboard.SavedDashboard, error) {
	if id == "" {
		return dashboard.NewSavedDashboard(""), nil
	}
	var resp savedObject
	if err := c.do(ctx, http.MethodGet, objectPath(id), nil, &resp); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, dashboard.NewNotFoundError(id)
		}
		return nil, err
	}
	return resp.document(), nil
}

// Save creates or overwrites a dashboard and returns its id.
func (c *HTTPClient) Save(ctx context.Context, doc *dashboard.SavedDashboard) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("%w: document is required", dashboard.ErrInvalidRequest)
	}
	path := savedObjectsPath + "/" + dashboard.SavedObjectType
	if doc.ID != "" {
		path = objectPath(doc.ID) + "?overwrite=true"
	}
	attrs := doc.Copy()
	attrs.ID = ""
	var resp savedObject
	if err := c.do(ctx, http.MethodPost, path, saveRequest{Attributes: attrs}, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("savedobjects: save response carried no id")
	}
	return resp.ID, nil
}

// Delete removes ids concurrently. Every id is attempted; failures are joined.
func (c *HTTPClient) Delete(ctx context.Context, ids ...string) error {
	errs := make([]error, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			err := c.do(gctx, http.MethodDelete, objectPath(id), nil, nil)
			if isStatus(err, http.StatusNotFound) {
				err = dashboard.NewNotFoundError(id)
			}
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Find lists dashboards through the _find endpoint.
func (c *HTTPClient) Find(ctx context.Context, opts dashboard.FindOptions) ([]*dashboard.SavedDashboard, error) {
	q := url.Values{}
	q.Set("type", dashboard.SavedObjectType)
	if opts.Search != "" {
		q.Set("search", opts.Search+"*")
		q.Set("search_fields", "title")
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	var resp findResponse
	if err := c.do(ctx, http.MethodGet, savedObjectsPath+"/_find?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]*dashboard.SavedDashboard, 0, len(resp.SavedObjects))
	for _, obj := range resp.SavedObjects {
		out = append(out, obj.document())
	}
	return out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload any, target any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, method, path, payload, target)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.log.Warn("saved objects request rejected", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("savedobjects: %s %s: %w", method, path, err)
	}
	return err
}

func (c *HTTPClient) roundTrip(ctx context.Context, method, path string, payload any, target any) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("savedobjects: encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("savedobjects: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("osd-xsrf", "true")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("savedobjects: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		statusErr := &StatusError{Code: resp.StatusCode, Body: buf.String()}
		if resp.StatusCode == http.StatusBadRequest {
			return fmt.Errorf("%w: %w", dashboard.ErrInvalidRequest, statusErr)
		}
		return statusErr
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("savedobjects: decode response: %w", err)
	}
	return nil
}

// StatusError is a non-2xx response from the remote.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("savedobjects: remote error %d: %s", e.Code, e.Body)
}

func isStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == code
}

func objectPath(id string) string {
	return savedObjectsPath + "/" + dashboard.SavedObjectType + "/" + url.PathEscape(id)
}

type saveRequest struct {
	Attributes *dashboard.SavedDashboard `json:"attributes"`
}

type savedObject struct {
	ID         string                    `json:"id"`
	Type       string                    `json:"type"`
	Attributes *dashboard.SavedDashboard `json:"attributes"`
}

func (o savedObject) document() *dashboard.SavedDashboard {
	doc := dashboard.NewSavedDashboard(o.ID)
	if o.Attributes != nil {
		doc = o.Attributes.Copy()
	}
	doc.ID = o.ID
	if doc.Version == 0 {
		doc.Version = 1
	}
	return doc
}

type findResponse struct {
	Page         int           `json:"page"`
	PerPage      int           `json:"per_page"`
	Total        int           `json:"total"`
	SavedObjects []savedObject `json:"saved_objects"`
}
