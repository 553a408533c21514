package dto

import "github.com/baechuer/storefront-auth/internal/domain"

// Struct tags bound request sizes only. Trimming, normalization and the
// business rules (name length, email shape, password strength) belong to
// the application layer. Signup passwords carry no tag: absent or oversized
// passwords are the strength gate's call.

// -------- Core auth --------

type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password"`
}

func (r *SignupRequest) Validate() error { return validateStruct(r) }

type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

func (r *LoginRequest) Validate() error { return validateStruct(r) }

// An empty refresh token is not a validation error: the service answers it
// with 401 refresh_token_missing. An oversized one is just an invalid token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"max=512"`
}

func (r *RefreshRequest) Validate() error {
	return asTokenError(validateStruct(r), domain.ErrRefreshTokenInvalid)
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"max=512"`
}

func (r *LogoutRequest) Validate() error {
	return asTokenError(validateStruct(r), domain.ErrRefreshTokenInvalid)
}

// -------- Email verification --------

// VerifyEmailQuery is read from ?token=.
type VerifyEmailQuery struct {
	Token string `json:"token" validate:"required,max=512"`
}

func (q *VerifyEmailQuery) Validate() error {
	return asTokenError(validateStruct(q), domain.ErrVerificationTokenInvalid)
}

// asTokenError reports a malformed token the way the service reports an
// unknown one. Missing tokens keep their own code.
func asTokenError(err error, invalid func() *domain.Error) error {
	if domain.Is(err, "invalid_field") {
		return invalid()
	}
	return err
}
