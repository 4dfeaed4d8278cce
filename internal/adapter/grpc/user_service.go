package grpc

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"

	usersapi "hydration-user-service/api/users"
	"hydration-user-service/internal/adapter/rpc"
	usecase "hydration-user-service/internal/usecase/user"
)

// UserServiceServer implements the gRPC user service on top of the procedure router.
type UserServiceServer struct {
	router *rpc.Router
}

// NewUserServiceServer creates a new gRPC user service server
func NewUserServiceServer(router *rpc.Router) *UserServiceServer {
	return &UserServiceServer{router: router}
}

// GetUsers handles gRPC GetUsers request
func (s *UserServiceServer) GetUsers(ctx context.Context, _ *emptypb.Empty) (*usersapi.GetUsersResponse, error) {
	users, err := rpc.CallAs[[]usecase.User](ctx, s.router, rpc.ProcedureGetUsers)
	if err != nil {
		return nil, err
	}

	resp := &usersapi.GetUsersResponse{Users: make([]usersapi.User, len(users))}
	for i, u := range users {
		resp.Users[i] = usersapi.User{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			CreatedAt: u.CreatedAt,
		}
	}
	return resp, nil
}
