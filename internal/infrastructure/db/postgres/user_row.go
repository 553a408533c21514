package postgres

import (
	"database/sql"
	"time"

	"github.com/baechuer/storefront-auth/internal/domain"
)

type userRow struct {
	ID           string
	Name         string
	Email        string
	Role         string
	PasswordHash string

	RefreshFP  sql.NullString
	RefreshExp sql.NullTime
	VerifyFP   sql.NullString
	VerifyExp  sql.NullTime
	Verified   bool
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

var userColumns = []string{
	"id",
	"name",
	"email",
	"role",
	"password_hash",
	"refresh_token_fingerprint",
	"refresh_token_expiry",
	"verification_token_fingerprint",
	"verification_token_expiry",
	"is_verified",
	"version",
	"created_at",
	"updated_at",
}

func (ur *userRow) scanDest() []any {
	return []any{
		&ur.ID,
		&ur.Name,
		&ur.Email,
		&ur.Role,
		&ur.PasswordHash,
		&ur.RefreshFP,
		&ur.RefreshExp,
		&ur.VerifyFP,
		&ur.VerifyExp,
		&ur.Verified,
		&ur.Version,
		&ur.CreatedAt,
		&ur.UpdatedAt,
	}
}

func toDomainUser(ur userRow) domain.User {
	return domain.User{
		ID:           ur.ID,
		Name:         ur.Name,
		Email:        ur.Email,
		Role:         ur.Role,
		PasswordHash: ur.PasswordHash,
		Refresh:      toStamp(ur.RefreshFP, ur.RefreshExp),
		Verification: toStamp(ur.VerifyFP, ur.VerifyExp),
		Verified:     ur.Verified,
		Version:      ur.Version,
		CreatedAt:    ur.CreatedAt,
		UpdatedAt:    ur.UpdatedAt,
	}
}

// a half-set pair is treated as no token
func toStamp(fp sql.NullString, exp sql.NullTime) *domain.Stamp {
	if !fp.Valid || !exp.Valid || fp.String == "" {
		return nil
	}
	return &domain.Stamp{Fingerprint: fp.String, ExpiresAt: exp.Time}
}

func fromStamp(s *domain.Stamp) (sql.NullString, sql.NullTime) {
	if s == nil {
		return sql.NullString{}, sql.NullTime{}
	}
	return sql.NullString{String: s.Fingerprint, Valid: true}, sql.NullTime{Time: s.ExpiresAt, Valid: true}
}
