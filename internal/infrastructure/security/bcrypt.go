package security

import (
	"context"

	"github.com/baechuer/storefront-auth/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

type BcryptHasher struct {
	cost int
	pool *Pool
}

// NewBcryptHasher returns a hasher with the given work factor. Hash and
// Compare run through pool when one is given.
func NewBcryptHasher(cost int, pool *Pool) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost, pool: pool}
}

func (h *BcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", domain.ErrMissingField("password")
	}

	var (
		b   []byte
		err error
	)
	if perr := h.pool.Do(ctx, func() {
		b, err = bcrypt.GenerateFromPassword([]byte(password), h.cost)
	}); perr != nil {
		return "", domain.ErrHashFailed(perr)
	}
	if err != nil {
		return "", domain.ErrHashFailed(err)
	}
	return string(b), nil
}

// Compare returns nil on match. bcrypt's own comparison is constant time.
func (h *BcryptHasher) Compare(ctx context.Context, hash string, password string) error {
	if password == "" {
		return domain.ErrMissingField("password")
	}

	var err error
	if perr := h.pool.Do(ctx, func() {
		err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	}); perr != nil {
		return domain.ErrHashFailed(perr)
	}
	return err
}
