package auth

import (
	"context"

	"github.com/baechuer/storefront-auth/internal/domain"
)

// Refresh rotates a refresh token and issues a new access token.
// Rotation rule: old refresh token becomes invalid once used successfully,
// and the session expiry never moves.
func (s *Service) Refresh(ctx context.Context, in RefreshInput) (AuthTokens, error) {
	if err := in.Validate(); err != nil {
		return AuthTokens{}, err
	}

	u, err := s.users.FindByRefreshFingerprint(ctx, s.tokens.Fingerprint(in.RefreshToken))
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return AuthTokens{}, domain.ErrRefreshTokenInvalid()
		}
		return AuthTokens{}, err
	}

	raw, err := s.tokens.Generate()
	if err != nil {
		return AuthTokens{}, asDomain(err, domain.ErrRandomFailed)
	}

	next, cmds, err := u.RotateSession(s.tokens.Fingerprint(raw), s.now())
	if err != nil {
		if domain.Is(err, "refresh_token_expired") {
			s.audit("refresh_failed", map[string]string{"user_id": u.ID, "reason": "expired"})
		}
		return AuthTokens{}, err
	}

	access, err := s.signAccess(next)
	if err != nil {
		return AuthTokens{}, err
	}

	if err := s.run(ctx, cmds); err != nil {
		// another request rotated the same token first
		if domain.Is(err, "stale_write") {
			return AuthTokens{}, domain.ErrRefreshTokenInvalid()
		}
		return AuthTokens{}, err
	}

	s.audit("refresh", map[string]string{"user_id": u.ID})
	return s.tokenPair(access, raw), nil
}
