package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

var usersKey = Key{"users", "getUsers"}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func countingFetch(calls *int32, users []testUser) FetchFunc {
	return func(ctx context.Context) (any, error) {
		atomic.AddInt32(calls, 1)
		return users, nil
	}
}

func TestKeyHash(t *testing.T) {
	assert.Equal(t, `["users","getUsers"]`, usersKey.Hash())
	assert.Equal(t, `[]`, Key(nil).Hash())
	assert.NotEqual(t, Key{"a,b"}.Hash(), Key{"a", "b"}.Hash())
}

func TestPrefetch_StoresData(t *testing.T) {
	c := New()
	var calls int32

	c.Prefetch(context.Background(), usersKey, countingFetch(&calls, []testUser{{ID: 1, Name: "Ada"}}))

	users, ok, err := Decode[[]testUser](c, usersKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []testUser{{ID: 1, Name: "Ada"}}, users)

	q, ok := c.State(usersKey)
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, q.Status)
	assert.Equal(t, int32(1), calls)
}

func TestPrefetch_ErrorIsSwallowed(t *testing.T) {
	c := New(WithLogger(zaptest.NewLogger(t)))

	c.Prefetch(context.Background(), usersKey, func(ctx context.Context) (any, error) {
		return nil, errors.New("database unavailable")
	})

	q, ok := c.State(usersKey)
	require.True(t, ok)
	assert.Equal(t, StatusError, q.Status)
	assert.Equal(t, "database unavailable", q.Error)

	_, ok = c.GetQueryData(usersKey)
	assert.False(t, ok)
}

func TestFetch_RespectsStaleTime(t *testing.T) {
	clock := newClock()
	c := New(WithStaleTime(time.Minute), WithClock(clock.Now))
	var calls int32
	fetch := countingFetch(&calls, []testUser{{ID: 1, Name: "Ada"}})
	ctx := context.Background()

	_, err := c.Fetch(ctx, usersKey, fetch)
	require.NoError(t, err)
	_, err = c.Fetch(ctx, usersKey, fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls, "fresh data must not refetch")

	clock.Advance(2 * time.Minute)
	_, err = c.Fetch(ctx, usersKey, fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls, "stale data must refetch")
}

func TestFetch_ZeroStaleTimeAlwaysRefetches(t *testing.T) {
	c := New()
	var calls int32
	fetch := countingFetch(&calls, []testUser{})

	_, _ = c.Fetch(context.Background(), usersKey, fetch)
	_, _ = c.Fetch(context.Background(), usersKey, fetch)

	assert.Equal(t, int32(2), calls)
}

func TestFetch_DeduplicatesConcurrentCalls(t *testing.T) {
	c := New()
	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []testUser{{ID: 1, Name: "Ada"}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := c.Fetch(context.Background(), usersKey, fetch)
			assert.NoError(t, err)
			assert.JSONEq(t, `[{"id":1,"name":"Ada"}]`, string(data))
		}()
	}

	// Let the goroutines pile up on the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetch_ErrorKeepsPreviousData(t *testing.T) {
	c := New()
	ctx := context.Background()

	_, err := c.Fetch(ctx, usersKey, func(ctx context.Context) (any, error) {
		return []testUser{{ID: 1, Name: "Ada"}}, nil
	})
	require.NoError(t, err)

	_, err = c.Fetch(ctx, usersKey, func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	q, _ := c.State(usersKey)
	assert.Equal(t, StatusError, q.Status)
	assert.JSONEq(t, `[{"id":1,"name":"Ada"}]`, string(q.Data))
}

func TestFetch_UnserializableResult(t *testing.T) {
	c := New()

	_, err := c.Fetch(context.Background(), usersKey, func(ctx context.Context) (any, error) {
		return make(chan int), nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unserializable")
}

func TestEnsureData_UsesStaleData(t *testing.T) {
	clock := newClock()
	c := New(WithClock(clock.Now))
	var calls int32
	fetch := countingFetch(&calls, []testUser{{ID: 1, Name: "Ada"}})

	_, err := c.EnsureData(context.Background(), usersKey, fetch)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = c.EnsureData(context.Background(), usersKey, fetch)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls)
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	c := New(WithStaleTime(time.Hour))
	var calls int32
	fetch := countingFetch(&calls, []testUser{})

	c.Prefetch(context.Background(), usersKey, fetch)
	c.Invalidate(usersKey)
	c.Prefetch(context.Background(), usersKey, fetch)

	assert.Equal(t, int32(2), calls)
}

func TestSetQueryData(t *testing.T) {
	c := New()

	require.NoError(t, c.SetQueryData(usersKey, []testUser{{ID: 2, Name: "Grace"}}))

	data, ok := c.GetQueryData(usersKey)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":2,"name":"Grace"}]`, string(data))

	assert.Error(t, c.SetQueryData(usersKey, func() {}))
}

func TestFetchAs(t *testing.T) {
	c := New()

	users, err := FetchAs(context.Background(), c, usersKey, func(ctx context.Context) ([]testUser, error) {
		return []testUser{{ID: 3, Name: "Linus"}}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []testUser{{ID: 3, Name: "Linus"}}, users)
}

func TestDecode_Missing(t *testing.T) {
	users, ok, err := Decode[[]testUser](New(), usersKey)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, users)
}
