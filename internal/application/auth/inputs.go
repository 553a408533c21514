package auth

import (
	"strings"
	"unicode/utf8"

	"github.com/baechuer/storefront-auth/internal/domain"
)

// Each operation takes its own input struct. Validate runs every
// required-field check before any business logic.

type SignupInput struct {
	Name     string
	Email    string
	Password string
}

func (in *SignupInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = domain.NormalizeEmail(in.Email)

	if in.Name == "" {
		return domain.ErrMissingField("name")
	}
	if in.Email == "" {
		return domain.ErrMissingField("email")
	}
	if n := utf8.RuneCountInString(in.Name); n < domain.NameMinLen || n > domain.NameMaxLen {
		return domain.ErrInvalidField("name", "must be between 3 and 50 characters")
	}
	if !domain.ValidEmail(in.Email) {
		return domain.ErrInvalidField("email", "invalid format")
	}
	// an absent password is a strength failure, not a malformed request
	if in.Password == "" {
		return domain.ErrWeakPassword("password is required")
	}
	return nil
}

type LoginInput struct {
	Email    string
	Password string
}

func (in *LoginInput) Validate() error {
	in.Email = domain.NormalizeEmail(in.Email)
	if in.Email == "" {
		return domain.ErrMissingField("email")
	}
	if in.Password == "" {
		return domain.ErrMissingField("password")
	}
	return nil
}

type RefreshInput struct {
	RefreshToken string
}

func (in *RefreshInput) Validate() error {
	in.RefreshToken = strings.TrimSpace(in.RefreshToken)
	if in.RefreshToken == "" {
		return domain.ErrRefreshTokenMissing()
	}
	return nil
}

type LogoutInput struct {
	RefreshToken string
}

func (in *LogoutInput) Validate() error {
	in.RefreshToken = strings.TrimSpace(in.RefreshToken)
	if in.RefreshToken == "" {
		return domain.ErrRefreshTokenMissing()
	}
	return nil
}

type VerifyEmailInput struct {
	Token string
}

func (in *VerifyEmailInput) Validate() error {
	in.Token = strings.TrimSpace(in.Token)
	if in.Token == "" {
		return domain.ErrMissingField("token")
	}
	return nil
}

// strengthInputs expands the signup identity into the words the strength
// gate should treat as guessable.
func strengthInputs(email, name string) []string {
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}

	add(email)
	add(name)
	if local, domainPart, ok := strings.Cut(email, "@"); ok {
		add(local)
		add(domainPart)
		// "test.com" -> "test"
		if host, _, ok := strings.Cut(domainPart, "."); ok {
			add(host)
		}
	}
	for _, part := range strings.Fields(name) {
		if len(part) > 2 {
			add(part)
		}
	}
	return out
}
