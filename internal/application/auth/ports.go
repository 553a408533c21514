package auth

import (
	"context"
	"time"

	"github.com/baechuer/storefront-auth/internal/domain"
)

/*
UserRepo
--------
Persistence port for the credential store.
Only describes WHAT the auth service needs, not HOW it's stored.
Lookups by fingerprint are exact-match.
Writes touch only the columns a transition changes and are guarded on the
fingerprint it read; a guard mismatch is domain.ErrStaleWrite, a missing
user is domain.ErrUserNotFound.
*/
type UserRepo interface {
	Create(ctx context.Context, u domain.User) (string, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByRefreshFingerprint(ctx context.Context, fp string) (domain.User, error)
	// Only matches while the verification expiry is after now.
	FindByVerificationFingerprint(ctx context.Context, fp string, now time.Time) (domain.User, error)
	// Empty expectFP overwrites the session unconditionally. nil next clears it.
	SetSession(ctx context.Context, userID, expectFP string, next *domain.Stamp, at time.Time) error
	// Applies only while fp is still the stored, unexpired verification fingerprint.
	ConsumeVerification(ctx context.Context, userID, fp string, at time.Time) error
}

/*
PasswordHasher
--------------
Abstracts bcrypt. Both calls are CPU bound and may queue on a worker pool.
*/
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Compare(ctx context.Context, hash string, password string) error // nil if match
}

/*
StrengthChecker
---------------
Admission gate for new passwords. inputs are user-specific words
(email, name, ...) that must not make a password look strong.
*/
type StrengthChecker interface {
	Check(ctx context.Context, password string, inputs ...string) error
}

/*
TokenSigner
-----------
Issues and verifies stateless access tokens (JWT).
Used by service + auth middleware.
*/
type TokenClaims struct {
	UserID string
	Name   string
	Role   string
	Exp    time.Time
}

type TokenSigner interface {
	SignAccessToken(userID, name, role string, ttl time.Duration) (string, error)
	VerifyAccessToken(token string) (TokenClaims, error)
}

/*
OpaqueTokens
------------
Random refresh / verification tokens and their keyless fingerprints.
*/
type OpaqueTokens interface {
	Generate() (string, error)
	Fingerprint(raw string) string
}

/*
Notifier
--------
Delivers the raw verification token to the user out of band.
Auth-service does NOT send emails directly.
*/
type Notifier interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
}
