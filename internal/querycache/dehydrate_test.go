package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDehydrate_SuccessOnly(t *testing.T) {
	clock := newClock()
	c := New(WithClock(clock.Now))
	ctx := context.Background()

	c.Prefetch(ctx, usersKey, func(ctx context.Context) (any, error) {
		return []testUser{{ID: 1, Name: "Ada"}}, nil
	})
	c.Prefetch(ctx, Key{"broken"}, func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	})

	state := c.Dehydrate()

	require.Len(t, state.Queries, 1)
	q := state.Queries[0]
	assert.Equal(t, usersKey, q.QueryKey)
	assert.Equal(t, usersKey.Hash(), q.QueryHash)
	assert.Equal(t, StatusSuccess, q.State.Status)
	assert.Equal(t, clock.Now().UnixMilli(), q.State.DataUpdatedAt)
	assert.JSONEq(t, `[{"id":1,"name":"Ada"}]`, string(q.State.Data))
}

func TestDehydrate_Empty(t *testing.T) {
	data, err := New().MarshalDehydrated()

	require.NoError(t, err)
	assert.JSONEq(t, `{"queries":[]}`, string(data))
}

func TestDehydrate_CustomPredicate(t *testing.T) {
	c := New(WithShouldDehydrate(func(q Query) bool { return true }))

	c.Prefetch(context.Background(), Key{"broken"}, func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	})

	state := c.Dehydrate()
	require.Len(t, state.Queries, 1)
	assert.Equal(t, StatusError, state.Queries[0].State.Status)
	assert.Equal(t, "boom", state.Queries[0].State.Error)
}

func TestDehydrate_WireFormat(t *testing.T) {
	clock := newClock()
	c := New(WithClock(clock.Now))
	require.NoError(t, c.SetQueryData(usersKey, []testUser{{ID: 1, Name: "Ada"}}))

	data, err := c.MarshalDehydrated()
	require.NoError(t, err)

	expected := `{"queries":[{"queryKey":["users","getUsers"],"queryHash":"[\"users\",\"getUsers\"]",` +
		`"state":{"data":[{"id":1,"name":"Ada"}],"dataUpdatedAt":1704110400000,"status":"success"}}]}`
	assert.JSONEq(t, expected, string(data))
}

func TestMarshalDehydrated_EscapesMarkup(t *testing.T) {
	c := New()
	require.NoError(t, c.SetQueryData(usersKey, []testUser{{ID: 1, Name: "</script><script>alert(1)</script>"}}))

	data, err := c.MarshalDehydrated()
	require.NoError(t, err)

	assert.NotContains(t, string(data), "</script>")
	assert.True(t, strings.Contains(string(data), `\u003c/script\u003e`))
}

func TestHydrate_RoundTrip(t *testing.T) {
	server := New()
	server.Prefetch(context.Background(), usersKey, func(ctx context.Context) (any, error) {
		return []testUser{{ID: 1, Name: "Ada"}, {ID: 2, Name: "Grace"}}, nil
	})
	data, err := server.MarshalDehydrated()
	require.NoError(t, err)

	state, err := ParseDehydrated(data)
	require.NoError(t, err)

	browser := New(WithStaleTime(time.Minute))
	browser.Hydrate(state)

	users, ok, err := Decode[[]testUser](browser, usersKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, users, 2)

	// Hydrated data is fresh, so a fetch on the other side is skipped.
	called := false
	_, err = browser.Fetch(context.Background(), usersKey, func(ctx context.Context) (any, error) {
		called = true
		return nil, nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestHydrate_KeepsNewerData(t *testing.T) {
	clock := newClock()
	c := New(WithClock(clock.Now))
	require.NoError(t, c.SetQueryData(usersKey, []testUser{{ID: 9, Name: "Newer"}}))

	older, err := json.Marshal([]testUser{{ID: 1, Name: "Older"}})
	require.NoError(t, err)
	c.Hydrate(DehydratedState{Queries: []DehydratedQuery{{
		QueryKey:  usersKey,
		QueryHash: usersKey.Hash(),
		State: QueryState{
			Data:          older,
			DataUpdatedAt: clock.Now().Add(-time.Minute).UnixMilli(),
			Status:        StatusSuccess,
		},
	}}})

	users, _, err := Decode[[]testUser](c, usersKey)
	require.NoError(t, err)
	assert.Equal(t, "Newer", users[0].Name)
}

func TestHydrate_ReplacesOlderData(t *testing.T) {
	clock := newClock()
	c := New(WithClock(clock.Now))
	require.NoError(t, c.SetQueryData(usersKey, []testUser{{ID: 1, Name: "Older"}}))

	newer, err := json.Marshal([]testUser{{ID: 9, Name: "Newer"}})
	require.NoError(t, err)
	c.Hydrate(DehydratedState{Queries: []DehydratedQuery{{
		QueryKey: usersKey,
		State: QueryState{
			Data:          newer,
			DataUpdatedAt: clock.Now().Add(time.Minute).UnixMilli(),
		},
	}}})

	users, _, err := Decode[[]testUser](c, usersKey)
	require.NoError(t, err)
	assert.Equal(t, "Newer", users[0].Name)

	q, _ := c.State(usersKey)
	assert.Equal(t, StatusSuccess, q.Status)
}

func TestParseDehydrated_Invalid(t *testing.T) {
	_, err := ParseDehydrated([]byte(`{"queries":`))
	assert.Error(t, err)

	state, err := ParseDehydrated([]byte(`{}`))
	require.NoError(t, err)
	assert.NotNil(t, state.Queries)
}
