// Package rpcclient provides typed clients for the users procedures over
// the HTTP RPC endpoint and over gRPC.
package rpcclient

import (
	"context"
	"fmt"

	usersapi "hydration-user-service/api/users"
)

// User is a user record as returned by getUsers.
type User = usersapi.User

// UsersClient fetches the user list from a running service.
type UsersClient interface {
	GetUsers(ctx context.Context) ([]User, error)
	Close() error
}

// Error is a procedure failure reported by the server.
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"httpStatus"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
