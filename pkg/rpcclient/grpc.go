package rpcclient

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	usersapi "hydration-user-service/api/users"
)

// GRPCClient calls users.UserService.
type GRPCClient struct {
	conn   *grpc.ClientConn
	client usersapi.UserServiceClient
}

// NewGRPCClient connects to target without transport security.
func NewGRPCClient(target string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC client for %s: %w", target, err)
	}
	return &GRPCClient{conn: conn, client: usersapi.NewUserServiceClient(conn)}, nil
}

// GetUsers calls GetUsers.
func (c *GRPCClient) GetUsers(ctx context.Context) ([]User, error) {
	resp, err := c.client.GetUsers(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, err
	}
	if resp.Users == nil {
		return []User{}, nil
	}
	return resp.Users, nil
}

// Close closes the underlying connection.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}
