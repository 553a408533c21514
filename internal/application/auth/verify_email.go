package auth

import (
	"context"

	"github.com/baechuer/storefront-auth/internal/domain"
)

// VerifyEmail consumes a verification token and marks the user verified.
// Unknown, expired and already-used tokens all fail the same way.
func (s *Service) VerifyEmail(ctx context.Context, in VerifyEmailInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	now := s.now()
	u, err := s.users.FindByVerificationFingerprint(ctx, s.tokens.Fingerprint(in.Token), now)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return domain.ErrVerificationTokenInvalid()
		}
		return err
	}

	_, cmds, err := u.ConfirmEmail(now)
	if err != nil {
		return err
	}
	if err := s.run(ctx, cmds); err != nil {
		// consumed by a concurrent request
		if domain.Is(err, "stale_write") {
			return domain.ErrVerificationTokenInvalid()
		}
		return err
	}

	s.audit("verify_email", map[string]string{"user_id": u.ID})
	return nil
}
