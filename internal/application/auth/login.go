package auth

import (
	"context"

	"github.com/baechuer/storefront-auth/internal/domain"
)

// Login authenticates a user and starts a new session.
// IMPORTANT: must not leak whether the email exists (avoid user enumeration).
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	if err := in.Validate(); err != nil {
		return LoginResult{}, err
	}

	u, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if !domain.Is(err, "user_not_found") {
			return LoginResult{}, err
		}
		// Hide not-found behind invalid credentials, at the same cost
		s.compareDummy(ctx, in.Password)
		s.audit("login_failed", map[string]string{"reason": "invalid_credentials"})
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	if err := s.hasher.Compare(ctx, u.PasswordHash, in.Password); err != nil {
		if domain.Is(err, "hash_failed") {
			return LoginResult{}, err
		}
		s.audit("login_failed", map[string]string{"reason": "invalid_credentials"})
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	access, err := s.signAccess(u)
	if err != nil {
		return LoginResult{}, err
	}

	// new window: login never inherits the previous refresh expiry
	now := s.now()
	refreshRaw, refresh, err := s.mintToken(now.Add(s.refreshTTL))
	if err != nil {
		return LoginResult{}, err
	}

	next, cmds := u.StartSession(refresh, now)
	if err := s.run(ctx, cmds); err != nil {
		return LoginResult{}, err
	}

	s.audit("login", map[string]string{"user_id": u.ID})
	return LoginResult{User: next, Tokens: s.tokenPair(access, refreshRaw)}, nil
}
