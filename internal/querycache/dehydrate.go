package querycache

import (
	"encoding/json"
	"time"
)

// DehydratedState is the serializable snapshot embedded in a rendered page.
type DehydratedState struct {
	Queries []DehydratedQuery `json:"queries"`
}

// DehydratedQuery is one exported query.
type DehydratedQuery struct {
	QueryKey  Key        `json:"queryKey"`
	QueryHash string     `json:"queryHash"`
	State     QueryState `json:"state"`
}

// QueryState carries the query result. Timestamps are Unix milliseconds.
type QueryState struct {
	Data           json.RawMessage `json:"data,omitempty"`
	DataUpdatedAt  int64           `json:"dataUpdatedAt"`
	Status         Status          `json:"status"`
	Error          string          `json:"error,omitempty"`
	ErrorUpdatedAt int64           `json:"errorUpdatedAt,omitempty"`
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Dehydrate exports the queries accepted by the ShouldDehydrate predicate,
// ordered by hash. The result is never nil.
func (c *Client) Dehydrate() DehydratedState {
	state := DehydratedState{Queries: []DehydratedQuery{}}
	for _, q := range c.queriesSorted() {
		if !c.shouldDehydrate(q) {
			continue
		}
		state.Queries = append(state.Queries, DehydratedQuery{
			QueryKey:  q.Key,
			QueryHash: q.Hash,
			State: QueryState{
				Data:           q.Data,
				DataUpdatedAt:  toMillis(q.DataUpdatedAt),
				Status:         q.Status,
				Error:          q.Error,
				ErrorUpdatedAt: toMillis(q.ErrorUpdatedAt),
			},
		})
	}
	return state
}

// Hydrate loads a dehydrated snapshot. Entries already holding data at least
// as new as the incoming one are left untouched.
func (c *Client) Hydrate(state DehydratedState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, dq := range state.Queries {
		hash := dq.QueryHash
		if hash == "" {
			hash = dq.QueryKey.Hash()
		}

		incoming := fromMillis(dq.State.DataUpdatedAt)
		if existing, ok := c.queries[hash]; ok && existing.Data != nil && !existing.DataUpdatedAt.Before(incoming) {
			continue
		}

		status := dq.State.Status
		if status == "" {
			status = StatusSuccess
		}
		c.queries[hash] = &Query{
			Key:            append(Key(nil), dq.QueryKey...),
			Hash:           hash,
			Data:           dq.State.Data,
			Status:         status,
			Error:          dq.State.Error,
			DataUpdatedAt:  incoming,
			ErrorUpdatedAt: fromMillis(dq.State.ErrorUpdatedAt),
		}
	}
}

// MarshalDehydrated returns the JSON form of Dehydrate(). encoding/json
// escapes <, > and & so the output can sit inside a script element.
func (c *Client) MarshalDehydrated() ([]byte, error) {
	return json.Marshal(c.Dehydrate())
}

// ParseDehydrated decodes a snapshot produced by MarshalDehydrated.
func ParseDehydrated(data []byte) (DehydratedState, error) {
	var state DehydratedState
	if err := json.Unmarshal(data, &state); err != nil {
		return DehydratedState{}, err
	}
	if state.Queries == nil {
		state.Queries = []DehydratedQuery{}
	}
	return state, nil
}
