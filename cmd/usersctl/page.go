package main

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"hydration-user-service/internal/adapter/rpc"
	"hydration-user-service/internal/querycache"
	"hydration-user-service/pkg/rpcclient"
)

var stateScript = regexp.MustCompile(`(?s)<script type="application/json" id="__QUERY_STATE__">(.*?)</script>`)

// pageState downloads path and returns the query state the server embedded in it.
func pageState(ctx context.Context, baseURL, path string, timeout time.Duration) (querycache.DehydratedState, error) {
	resp, err := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		R().
		SetContext(ctx).
		SetHeader("Accept", "text/html").
		Get(path)
	if err != nil {
		return querycache.DehydratedState{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	if resp.IsError() {
		return querycache.DehydratedState{}, fmt.Errorf("failed to load %s: status %d", path, resp.StatusCode())
	}

	m := stateScript.FindSubmatch(resp.Body())
	if m == nil {
		return querycache.DehydratedState{}, fmt.Errorf("%s has no embedded query state", path)
	}
	state, err := querycache.ParseDehydrated(m[1])
	if err != nil {
		return querycache.DehydratedState{}, fmt.Errorf("failed to parse query state of %s: %w", path, err)
	}
	return state, nil
}

// usersFromPage hydrates a cache from the /users page and reads getUsers from it.
// A positive maxAge refetches data older than that; zero accepts any age.
func usersFromPage(ctx context.Context, baseURL string, maxAge, timeout time.Duration, client rpcclient.UsersClient) ([]rpcclient.User, error) {
	state, err := pageState(ctx, baseURL, "/users", timeout)
	if err != nil {
		return nil, err
	}

	qc := querycache.New(querycache.WithStaleTime(maxAge))
	qc.Hydrate(state)

	if maxAge > 0 {
		return querycache.FetchAs(ctx, qc, rpc.UsersQueryKey, client.GetUsers)
	}

	data, err := qc.EnsureData(ctx, rpc.UsersQueryKey, func(ctx context.Context) (any, error) {
		return client.GetUsers(ctx)
	})
	if err != nil {
		return nil, err
	}
	var users []rpcclient.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	if users == nil {
		users = []rpcclient.User{}
	}
	return users, nil
}
