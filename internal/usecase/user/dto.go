package user

import "time"

// User represents a user DTO returned to transports. It never carries the password hash.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// GetUsersResponse represents the result of the getUsers procedure.
type GetUsersResponse struct {
	Users []User
}

// GetUserRequest represents the request payload for retrieving a user.
type GetUserRequest struct {
	ID int64
}

// GetUserResponse represents the response payload for user details.
type GetUserResponse struct {
	User User
}

// CreateUserRequest represents the request payload for creating a new user.
type CreateUserRequest struct {
	Name     string `validate:"required,min=3,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
}

// CreateUserResponse represents the response payload after creating a user.
type CreateUserResponse struct {
	ID int64
}

// AuthenticateRequest represents login credentials.
type AuthenticateRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// AuthenticateResponse carries the authenticated user.
type AuthenticateResponse struct {
	User User
}
