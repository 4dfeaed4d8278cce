// Package querycache is a keyed query cache whose state can be serialized
// into a server-rendered page and loaded again without re-fetching.
//
// A page handler creates one Client per request, prefetches the queries the
// page needs, and embeds Dehydrate() in the HTML. The browser component reads
// that state for its key and only fetches when the key is absent.
package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Status is the lifecycle state of a query.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Key identifies a query, e.g. Key{"users", "getUsers"}.
type Key []string

// Hash returns the stable string form of the key used for lookups.
func (k Key) Hash() string {
	if k == nil {
		k = Key{}
	}
	b, _ := json.Marshal([]string(k))
	return string(b)
}

// FetchFunc loads the value of a query. The result must be JSON serializable.
type FetchFunc func(ctx context.Context) (any, error)

// Query is a snapshot of one cache entry.
type Query struct {
	Key            Key
	Hash           string
	Data           json.RawMessage
	Status         Status
	Error          string
	DataUpdatedAt  time.Time
	ErrorUpdatedAt time.Time
	Invalidated    bool
}

// Client holds query entries for a single render or session.
type Client struct {
	mu      sync.RWMutex
	queries map[string]*Query
	group   singleflight.Group

	staleTime       time.Duration
	now             func() time.Time
	shouldDehydrate func(Query) bool
	log             *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithStaleTime sets how long successful data counts as fresh. Zero means always stale.
func WithStaleTime(d time.Duration) Option {
	return func(c *Client) { c.staleTime = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithShouldDehydrate replaces the predicate selecting the queries Dehydrate exports.
func WithShouldDehydrate(fn func(Query) bool) Option {
	return func(c *Client) { c.shouldDehydrate = fn }
}

// WithLogger sets the logger used for fetch failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// DefaultShouldDehydrate exports successful queries only.
func DefaultShouldDehydrate(q Query) bool {
	return q.Status == StatusSuccess
}

// New creates an empty Client.
func New(opts ...Option) *Client {
	c := &Client{
		queries:         make(map[string]*Query),
		now:             time.Now,
		shouldDehydrate: DefaultShouldDehydrate,
		log:             zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// isFresh reports whether q holds successful data younger than the stale time.
func (c *Client) isFresh(q *Query) bool {
	if q == nil || q.Status != StatusSuccess || q.Invalidated {
		return false
	}
	return c.now().Sub(q.DataUpdatedAt) < c.staleTime
}

// Prefetch loads key unless fresh data is cached. Failures are recorded on
// the entry and never returned, so a page can render without the data.
func (c *Client) Prefetch(ctx context.Context, key Key, fetch FetchFunc) {
	if _, err := c.Fetch(ctx, key, fetch); err != nil {
		c.log.Warn("prefetch failed", zap.String("query", key.Hash()), zap.Error(err))
	}
}

// Fetch returns fresh cached data for key or runs fetch. Concurrent fetches
// of the same key share one call.
func (c *Client) Fetch(ctx context.Context, key Key, fetch FetchFunc) (json.RawMessage, error) {
	hash := key.Hash()

	c.mu.RLock()
	q := c.queries[hash]
	fresh := c.isFresh(q)
	var data json.RawMessage
	if fresh {
		data = q.Data
	}
	c.mu.RUnlock()

	if fresh {
		return data, nil
	}

	result, err, _ := c.group.Do(hash, func() (any, error) {
		return c.run(ctx, key, hash, fetch)
	})
	if err != nil {
		return nil, err
	}
	return result.(json.RawMessage), nil
}

// EnsureData returns any cached successful data for key, fetching only when none exists.
func (c *Client) EnsureData(ctx context.Context, key Key, fetch FetchFunc) (json.RawMessage, error) {
	if data, ok := c.GetQueryData(key); ok {
		return data, nil
	}
	return c.Fetch(ctx, key, fetch)
}

func (c *Client) run(ctx context.Context, key Key, hash string, fetch FetchFunc) (json.RawMessage, error) {
	c.mu.Lock()
	q, ok := c.queries[hash]
	if !ok {
		q = &Query{Key: append(Key(nil), key...), Hash: hash, Status: StatusPending}
		c.queries[hash] = q
	}
	c.mu.Unlock()

	value, err := fetch(ctx)
	var data json.RawMessage
	if err == nil {
		data, err = json.Marshal(value)
		if err != nil {
			err = fmt.Errorf("query %s returned unserializable data: %w", hash, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if err != nil {
		// Previously loaded data is kept next to the error.
		q.Status = StatusError
		q.Error = err.Error()
		q.ErrorUpdatedAt = now
		return nil, err
	}

	q.Data = data
	q.Status = StatusSuccess
	q.Error = ""
	q.DataUpdatedAt = now
	q.Invalidated = false
	return data, nil
}

// GetQueryData returns the cached data for key when the query has succeeded at least once.
func (c *Client) GetQueryData(key Key) (json.RawMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q, ok := c.queries[key.Hash()]
	if !ok || q.Data == nil {
		return nil, false
	}
	return q.Data, true
}

// SetQueryData stores v as successful data for key.
func (c *Client) SetQueryData(key Key, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode query data: %w", err)
	}

	hash := key.Hash()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queries[hash] = &Query{
		Key:           append(Key(nil), key...),
		Hash:          hash,
		Data:          data,
		Status:        StatusSuccess,
		DataUpdatedAt: c.now(),
	}
	return nil
}

// Invalidate marks key stale so the next Fetch or Prefetch reloads it.
func (c *Client) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if q, ok := c.queries[key.Hash()]; ok {
		q.Invalidated = true
	}
}

// State returns a snapshot of the entry for key.
func (c *Client) State(key Key) (Query, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q, ok := c.queries[key.Hash()]
	if !ok {
		return Query{}, false
	}
	return *q, true
}

// queriesSorted returns snapshots of every entry ordered by hash.
func (c *Client) queriesSorted() []Query {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Query, 0, len(c.queries))
	for _, q := range c.queries {
		out = append(out, *q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out
}

// Decode unmarshals the cached data for key into T.
func Decode[T any](c *Client, key Key) (T, bool, error) {
	var out T
	data, ok := c.GetQueryData(key)
	if !ok {
		return out, false, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, true, fmt.Errorf("failed to decode query %s: %w", key.Hash(), err)
	}
	return out, true, nil
}

// FetchAs runs Fetch with a typed fetcher and decodes the result.
func FetchAs[T any](ctx context.Context, c *Client, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	var out T
	data, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to decode query %s: %w", key.Hash(), err)
	}
	return out, nil
}
