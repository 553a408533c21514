package auth

import (
	"context"

	"github.com/baechuer/storefront-auth/internal/domain"
)

// Logout ends the session the refresh token belongs to.
func (s *Service) Logout(ctx context.Context, in LogoutInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	u, err := s.users.FindByRefreshFingerprint(ctx, s.tokens.Fingerprint(in.RefreshToken))
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return domain.ErrSessionNotFound()
		}
		return err
	}

	_, cmds, err := u.EndSession(s.now())
	if err != nil {
		return err
	}
	if err := s.run(ctx, cmds); err != nil {
		// the session moved on underneath us (rotated or already ended)
		if domain.Is(err, "stale_write") {
			return domain.ErrSessionNotFound()
		}
		return err
	}

	s.audit("logout", map[string]string{"user_id": u.ID})
	return nil
}
