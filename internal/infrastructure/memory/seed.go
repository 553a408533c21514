package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/baechuer/storefront-auth/internal/domain"
	"github.com/baechuer/storefront-auth/internal/logger"
)

// Hasher is the minimal surface we need for seeding.
type Hasher interface {
	Hash(ctx context.Context, password string) (string, error)
}

// SeedUsers creates initial users for local development (in-memory only).
// Safe to call multiple times (duplicates ignored).
func SeedUsers(ctx context.Context, users *UserRepo, hasher Hasher) {
	type seedUser struct {
		Name  string
		Email string
		Role  domain.Role
		Pass  string
	}

	seeds := []seedUser{
		{Name: "Store Admin", Email: "admin@example.com", Role: domain.RoleAdmin, Pass: "AdminPassword123!"},
		{Name: "Sample Shopper", Email: "user@example.com", Role: domain.RoleUser, Pass: "UserPassword123!"},
	}

	for _, s := range seeds {
		hash, err := hasher.Hash(ctx, s.Pass)
		if err != nil {
			logger.Logger.Warn().Err(err).Str("email", s.Email).Msg("seed: hash failed")
			continue
		}

		u := domain.User{
			ID:           uuid.NewString(),
			Name:         s.Name,
			Email:        s.Email,
			PasswordHash: hash,
			Role:         string(s.Role),
			Verified:     true,
		}

		if _, err := users.Create(ctx, u); err != nil {
			// ignore duplicates / restart
			continue
		}
	}

	logger.Logger.Info().Int("count", len(seeds)).Msg("seed: in-memory users seeded")
}
