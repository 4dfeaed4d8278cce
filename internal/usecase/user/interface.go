package user

import "context"

// Usecase defines the interface for user business logic operations.
type Usecase interface {
	GetUsers(ctx context.Context) (*GetUsersResponse, error)
	GetUser(ctx context.Context, in GetUserRequest) (*GetUserResponse, error)
	CreateUser(ctx context.Context, in CreateUserRequest) (*CreateUserResponse, error)
	Authenticate(ctx context.Context, in AuthenticateRequest) (*AuthenticateResponse, error)
}
