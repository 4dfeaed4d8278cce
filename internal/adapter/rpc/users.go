package rpc

import (
	"context"

	"hydration-user-service/internal/querycache"
	usecase "hydration-user-service/internal/usecase/user"
)

// ProcedureGetUsers lists every user.
const ProcedureGetUsers = "getUsers"

// UsersQueryKey is the query cache key of getUsers, shared with the browser component.
var UsersQueryKey = querycache.Key{"users", ProcedureGetUsers}

// RegisterUserProcedures adds the user procedures to r.
func RegisterUserProcedures(r *Router, uc usecase.Usecase) {
	Query(r, ProcedureGetUsers, func(ctx context.Context) ([]usecase.User, error) {
		resp, err := uc.GetUsers(ctx)
		if err != nil {
			return nil, err
		}
		return resp.Users, nil
	})
}

// PrefetchUsers loads getUsers into qc through the in-process caller.
func PrefetchUsers(ctx context.Context, r *Router, qc *querycache.Client) {
	qc.Prefetch(ctx, UsersQueryKey, func(ctx context.Context) (any, error) {
		return r.Call(ctx, ProcedureGetUsers, nil)
	})
}
