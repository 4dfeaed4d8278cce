package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"hydration-user-service/internal/auth"
	domain "hydration-user-service/internal/domain/user"
	pkgerrors "hydration-user-service/pkg/errors"
	"hydration-user-service/pkg/logger"
)

// Repository defines the interface for user data access operations.
// It abstracts the data layer, allowing the cached decorator and the
// GORM implementation to be used interchangeably.
type Repository interface {
	// FindMany lists every user ordered by ID.
	FindMany(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// GetByEmail returns (nil, nil) when no user has the email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) (int64, error)
}

// UserUsecase implements the business logic behind the user procedures.
type UserUsecase struct {
	repo     Repository
	log      *zap.Logger
	validate *validator.Validate
}

// New creates a new instance of UserUsecase with the provided repository and logger.
func New(r Repository, log *zap.Logger) *UserUsecase {
	return &UserUsecase{repo: r, log: log, validate: validator.New()}
}

// formatValidationError converts validator.ValidationErrors into a ValidationError.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return pkgerrors.NewValidationError("", strings.Join(messages, ", "))
}

func toDTO(u domain.User) User {
	return User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// GetUsers lists every user. It takes no parameters and always returns a non-nil slice.
func (uc *UserUsecase) GetUsers(ctx context.Context) (*GetUsersResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	domainUsers, err := uc.repo.FindMany(ctx)
	if err != nil {
		log.Error("failed to list users", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to list users", err)
	}

	users := make([]User, len(domainUsers))
	for i, du := range domainUsers {
		users[i] = toDTO(du)
	}

	log.Debug("listed users", zap.Int("count", len(users)))
	return &GetUsersResponse{Users: users}, nil
}

// GetUser retrieves a user by ID.
func (uc *UserUsecase) GetUser(ctx context.Context, in GetUserRequest) (*GetUserResponse, error) {
	if in.ID <= 0 {
		uc.log.Warn("get user validation failed", zap.Int64("id", in.ID), zap.String("reason", "invalid id"))
		return nil, pkgerrors.NewValidationError("ID", "invalid user id")
	}

	u, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		var notFound *pkgerrors.NotFoundError
		if errors.As(err, &notFound) {
			return nil, err
		}
		logger.WithContext(ctx, uc.log).Error("failed to get user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to get user", err)
	}

	return &GetUserResponse{User: toDTO(*u)}, nil
}

// CreateUser creates a new user after validating the request and checking email uniqueness.
func (uc *UserUsecase) CreateUser(ctx context.Context, in CreateUserRequest) (*CreateUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	log.Info("creating user", zap.String("name", in.Name), zap.String("email", in.Email))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	existingUser, err := uc.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		log.Error("failed to check existing email", zap.String("email", in.Email), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to validate email uniqueness", err)
	}
	if existingUser != nil {
		log.Warn("email already exists", zap.String("email", in.Email))
		return nil, pkgerrors.NewAlreadyExistsError("user", "email already exists")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to create user", err)
	}

	id, err := uc.repo.Create(ctx, &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		var exists *pkgerrors.AlreadyExistsError
		if errors.As(err, &exists) {
			return nil, err
		}
		log.Error("failed to create user", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to create user", err)
	}
	return &CreateUserResponse{ID: id}, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords yield the same error.
func (uc *UserUsecase) Authenticate(ctx context.Context, in AuthenticateRequest) (*AuthenticateResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := uc.validate.Struct(in); err != nil {
		log.Debug("login validation failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	u, err := uc.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		log.Error("failed to look up user for login", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to authenticate", err)
	}

	hash := ""
	if u != nil {
		hash = u.PasswordHash
	}

	ok, err := auth.CheckPassword(hash, in.Password)
	if err != nil {
		log.Error("failed to verify password", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to authenticate", err)
	}
	if u == nil || !ok {
		log.Info("login rejected", zap.String("email", in.Email))
		return nil, pkgerrors.ErrInvalidCredentials
	}

	log.Info("login accepted", zap.Int64("id", u.ID))
	return &AuthenticateResponse{User: toDTO(*u)}, nil
}
