package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/baechuer/storefront-auth/internal/domain"
)

// Signup registers a new unverified user, signs them in and hands a
// verification token to the notifier. The user is persisted exactly once,
// after the notification has been accepted.
func (s *Service) Signup(ctx context.Context, in SignupInput) (SignupResult, error) {
	if err := in.Validate(); err != nil {
		return SignupResult{}, err
	}

	// checked up front so an existing address never receives a verification mail
	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return SignupResult{}, domain.ErrEmailAlreadyExists()
	} else if !domain.Is(err, "user_not_found") {
		return SignupResult{}, err
	}

	if err := s.strength.Check(ctx, in.Password, strengthInputs(in.Email, in.Name)...); err != nil {
		s.audit("signup_rejected", map[string]string{"reason": domainCode(err)})
		return SignupResult{}, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return SignupResult{}, asDomain(err, domain.ErrHashFailed)
	}

	now := s.now()
	refreshRaw, refresh, err := s.mintToken(now.Add(s.refreshTTL))
	if err != nil {
		return SignupResult{}, err
	}
	verifyRaw, verification, err := s.mintToken(now.Add(s.verifyEmailTTL))
	if err != nil {
		return SignupResult{}, err
	}

	u, cmds, err := domain.NewUser(domain.NewUserInput{
		ID:                uuid.NewString(),
		Name:              in.Name,
		Email:             in.Email,
		PasswordHash:      hash,
		Refresh:           refresh,
		Verification:      verification,
		VerificationToken: verifyRaw,
		Now:               now,
	})
	if err != nil {
		return SignupResult{}, err
	}

	access, err := s.signAccess(u)
	if err != nil {
		return SignupResult{}, err
	}

	if err := s.run(ctx, cmds); err != nil {
		s.audit("signup_failed", map[string]string{"reason": domainCode(err)})
		return SignupResult{}, err
	}

	s.audit("signup", map[string]string{"user_id": u.ID})
	return SignupResult{User: u, Tokens: s.tokenPair(access, refreshRaw)}, nil
}
