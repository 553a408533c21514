package dto

import "github.com/baechuer/storefront-auth/internal/domain"

const (
	MsgSignedUp      = "User registered successfully"
	MsgLoggedOut     = "user logged out successfully"
	MsgEmailVerified = "Email verified successfully! You can now log in."
)

// UserView is the public projection of a user. Fields a given endpoint
// does not expose are left empty and omitted.
type UserView struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role"`
	IsVerified *bool  `json:"isVerified,omitempty"`
}

// -------- Core auth --------

type SignupResponse struct {
	Msg          string   `json:"msg"`
	User         UserView `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}

type LoginResponse struct {
	User         UserView `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}

type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type MessageResponse struct {
	Msg string `json:"msg"`
}

// -------- Me --------

type MeResponse struct {
	User UserView `json:"user"`
}

// FullUserView is the signup projection.
func FullUserView(u domain.User) UserView {
	verified := u.Verified
	return UserView{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		IsVerified: &verified,
	}
}
