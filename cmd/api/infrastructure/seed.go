package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	usecase "hydration-user-service/internal/usecase/user"
	pkgerrors "hydration-user-service/pkg/errors"
)

// DemoPassword is the password every seeded user signs in with.
const DemoPassword = "hydrate-me-please"

var demoUsers = []usecase.CreateUserRequest{
	{Name: "Ada Lovelace", Email: "ada@example.com"},
	{Name: "Grace Hopper", Email: "grace@example.com"},
	{Name: "Alan Turing", Email: "alan@example.com"},
	{Name: "Katherine Johnson", Email: "katherine@example.com"},
}

// SeedUsers creates the demo users. Existing emails are skipped so it is safe to run on every start.
func SeedUsers(ctx context.Context, uc usecase.Usecase, l *zap.Logger) error {
	created := 0
	for _, u := range demoUsers {
		u.Password = DemoPassword
		if _, err := uc.CreateUser(ctx, u); err != nil {
			var exists *pkgerrors.AlreadyExistsError
			if errors.As(err, &exists) {
				continue
			}
			return fmt.Errorf("failed to seed user %s: %w", u.Email, err)
		}
		created++
	}

	l.Info("demo users seeded", zap.Int("created", created), zap.Int("total", len(demoUsers)))
	return nil
}
