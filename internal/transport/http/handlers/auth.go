package http_handlers

import (
	"context"
	"net/http"

	"github.com/baechuer/storefront-auth/internal/application/auth"
	"github.com/baechuer/storefront-auth/internal/domain"
	"github.com/baechuer/storefront-auth/internal/logger"
	reqctx "github.com/baechuer/storefront-auth/internal/pkg/context"
	"github.com/baechuer/storefront-auth/internal/transport/http/dto"
	"github.com/baechuer/storefront-auth/internal/transport/http/response"
)

// AuthService is the slice of auth.Service the handlers drive.
type AuthService interface {
	Signup(ctx context.Context, in auth.SignupInput) (auth.SignupResult, error)
	Login(ctx context.Context, in auth.LoginInput) (auth.LoginResult, error)
	Refresh(ctx context.Context, in auth.RefreshInput) (auth.AuthTokens, error)
	Logout(ctx context.Context, in auth.LogoutInput) error
	VerifyEmail(ctx context.Context, in auth.VerifyEmailInput) error
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Signup handles POST /signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Signup(r.Context(), auth.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Msg("user_registered")

	response.Created(w, dto.SignupResponse{
		Msg:          dto.MsgSignedUp,
		User:         dto.FullUserView(res.User),
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	})
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Msg("user_logged_in")

	response.OK(w, dto.LoginResponse{
		User:         dto.UserView{Name: res.User.Name, Role: res.User.Role},
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	})
}

// RefreshToken handles POST /refresh-token
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	tokens, err := h.svc.Refresh(r.Context(), auth.RefreshInput{RefreshToken: req.RefreshToken})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.RefreshResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// Logout handles POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req dto.LogoutRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.Logout(r.Context(), auth.LogoutInput{RefreshToken: req.RefreshToken}); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.MessageResponse{Msg: dto.MsgLoggedOut})
}

// VerifyEmail handles GET /verify-email?token=...
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	q := dto.VerifyEmailQuery{Token: r.URL.Query().Get("token")}
	if err := q.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.VerifyEmail(r.Context(), auth.VerifyEmailInput{Token: q.Token}); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.MessageResponse{Msg: dto.MsgEmailVerified})
}

// Me handles GET /me. The Auth middleware must run first.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := reqctx.GetPrincipal(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	response.OK(w, dto.MeResponse{User: dto.UserView{
		ID:   p.UserID,
		Name: p.Name,
		Role: p.Role,
	}})
}
