package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/baechuer/storefront-auth/internal/domain"
)

type Service struct {
	users    UserRepo
	hasher   PasswordHasher
	strength StrengthChecker
	signer   TokenSigner
	tokens   OpaqueTokens
	notifier Notifier

	accessTTL      time.Duration
	refreshTTL     time.Duration
	verifyEmailTTL time.Duration

	audit func(action string, fields map[string]string)
	now   func() time.Time

	// hash compared against when the email is unknown, so both login
	// failures cost one bcrypt comparison
	dummyOnce sync.Once
	dummyHash string
}

type Config struct {
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
	VerifyEmailTokenTTL time.Duration
}

func NewService(
	users UserRepo,
	hasher PasswordHasher,
	strength StrengthChecker,
	signer TokenSigner,
	tokens OpaqueTokens,
	notifier Notifier,
	cfg Config,
) *Service {
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	verifyTTL := cfg.VerifyEmailTokenTTL
	if verifyTTL <= 0 {
		verifyTTL = 24 * time.Hour
	}

	return &Service{
		users:    users,
		hasher:   hasher,
		strength: strength,
		signer:   signer,
		tokens:   tokens,
		notifier: notifier,

		accessTTL:      accessTTL,
		refreshTTL:     refreshTTL,
		verifyEmailTTL: verifyTTL,

		audit: func(string, map[string]string) {},
		now:   time.Now,
	}
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// WithClock overrides the time source (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// AuthTokens is the common token output for handlers/DTO mapping.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64  // access token lifetime in seconds
	TokenType    string // "Bearer"
}

type SignupResult struct {
	User   domain.User
	Tokens AuthTokens
}

type LoginResult struct {
	User   domain.User
	Tokens AuthTokens
}

func (s *Service) signAccess(u domain.User) (string, error) {
	access, err := s.signer.SignAccessToken(u.ID, u.Name, u.Role, s.accessTTL)
	if err != nil {
		return "", asDomain(err, domain.ErrTokenSignFailed)
	}
	return access, nil
}

func (s *Service) tokenPair(access, refresh string) AuthTokens {
	return AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}
}

// mintToken returns a raw opaque token and its stamp.
func (s *Service) mintToken(expiresAt time.Time) (string, domain.Stamp, error) {
	raw, err := s.tokens.Generate()
	if err != nil {
		return "", domain.Stamp{}, asDomain(err, domain.ErrRandomFailed)
	}
	return raw, domain.Stamp{Fingerprint: s.tokens.Fingerprint(raw), ExpiresAt: expiresAt}, nil
}

// run executes the commands produced by a domain transition, in order.
// The first failure stops the sequence.
func (s *Service) run(ctx context.Context, cmds []domain.Command) error {
	for _, c := range cmds {
		switch cmd := c.(type) {
		case domain.NotifyVerification:
			if s.notifier == nil {
				return domain.ErrNotifierUnavailable(fmt.Errorf("no notifier configured"))
			}
			if err := s.notifier.SendVerificationEmail(ctx, cmd.Email, cmd.Token); err != nil {
				return domain.ErrNotifierUnavailable(err)
			}
		case domain.InsertUser:
			if _, err := s.users.Create(ctx, cmd.User); err != nil {
				return err
			}
		case domain.WriteSession:
			if err := s.users.SetSession(ctx, cmd.UserID, cmd.Expect, cmd.Next, cmd.At); err != nil {
				return err
			}
		case domain.ConsumeVerification:
			if err := s.users.ConsumeVerification(ctx, cmd.UserID, cmd.Fingerprint, cmd.At); err != nil {
				return err
			}
		default:
			return domain.ErrInternal(fmt.Errorf("unknown command %T", c))
		}
	}
	return nil
}

func (s *Service) compareDummy(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(ctx, "storefront-dummy-password")
	})
	if s.dummyHash != "" {
		_ = s.hasher.Compare(ctx, s.dummyHash, password)
	}
}
