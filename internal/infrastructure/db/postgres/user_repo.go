package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/storefront-auth/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// ---------- helpers ----------

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func (r *UserRepo) findOne(ctx context.Context, where ...sq.Sqlizer) (domain.User, error) {
	b := psql.Select(userColumns...).From("users").Limit(1)
	for _, w := range where {
		b = b.Where(w)
	}
	q, args, err := b.ToSql()
	if err != nil {
		return domain.User{}, domain.ErrInternal(err)
	}

	var ur userRow
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(ur.scanDest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return toDomainUser(ur), nil
}

// ---------- auth.UserRepo ----------

func (r *UserRepo) Create(ctx context.Context, u domain.User) (string, error) {
	u.Email = domain.NormalizeEmail(u.Email)
	if u.ID == "" {
		return "", domain.ErrMissingField("id")
	}
	if u.Email == "" {
		return "", domain.ErrMissingField("email")
	}
	if u.PasswordHash == "" {
		return "", domain.ErrMissingField("password_hash")
	}
	if u.Role == "" {
		u.Role = string(domain.RoleUser)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	refFP, refExp := fromStamp(u.Refresh)
	verFP, verExp := fromStamp(u.Verification)

	q, args, err := psql.Insert("users").
		Columns(userColumns...).
		Values(
			u.ID, u.Name, u.Email, u.Role, u.PasswordHash,
			refFP, refExp, verFP, verExp,
			u.Verified, 1, u.CreatedAt, u.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return "", domain.ErrInternal(err)
	}

	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		if pgCode(err) == pgerrcode.UniqueViolation {
			return "", domain.ErrEmailAlreadyExists()
		}
		return "", domain.ErrDBUnavailable(err)
	}
	return u.ID, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	return r.findOne(ctx, sq.Eq{"email": email})
}

func (r *UserRepo) FindByRefreshFingerprint(ctx context.Context, fp string) (domain.User, error) {
	fp = strings.TrimSpace(fp)
	if fp == "" {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.findOne(ctx, sq.Eq{"refresh_token_fingerprint": fp})
}

func (r *UserRepo) FindByVerificationFingerprint(ctx context.Context, fp string, now time.Time) (domain.User, error) {
	fp = strings.TrimSpace(fp)
	if fp == "" {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.findOne(ctx,
		sq.Eq{"verification_token_fingerprint": fp},
		sq.Gt{"verification_token_expiry": now},
	)
}

// SetSession writes only the refresh pair. A non-empty expectFP guards the
// row on the fingerprint the caller read.
func (r *UserRepo) SetSession(ctx context.Context, userID, expectFP string, next *domain.Stamp, at time.Time) error {
	if userID == "" {
		return domain.ErrMissingField("id")
	}
	refFP, refExp := fromStamp(next)

	b := psql.Update("users").
		Set("refresh_token_fingerprint", refFP).
		Set("refresh_token_expiry", refExp).
		Set("updated_at", stampTime(at)).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": userID})
	if expectFP != "" {
		b = b.Where(sq.Eq{"refresh_token_fingerprint": expectFP})
	}
	return r.guardedUpdate(ctx, userID, b)
}

// ConsumeVerification flips is_verified and clears the verification pair
// while fp is still outstanding and unexpired.
func (r *UserRepo) ConsumeVerification(ctx context.Context, userID, fp string, at time.Time) error {
	if userID == "" {
		return domain.ErrMissingField("id")
	}
	if strings.TrimSpace(fp) == "" {
		return domain.ErrMissingField("fingerprint")
	}
	at = stampTime(at)

	b := psql.Update("users").
		Set("is_verified", true).
		Set("verification_token_fingerprint", nil).
		Set("verification_token_expiry", nil).
		Set("updated_at", at).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": userID}).
		Where(sq.Eq{"verification_token_fingerprint": fp}).
		Where(sq.Gt{"verification_token_expiry": at})
	return r.guardedUpdate(ctx, userID, b)
}

func (r *UserRepo) guardedUpdate(ctx context.Context, userID string, b sq.UpdateBuilder) error {
	q, args, err := b.ToSql()
	if err != nil {
		return domain.ErrInternal(err)
	}

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if n == 0 {
		return r.missOrStale(ctx, userID)
	}
	return nil
}

func stampTime(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at
}

// missOrStale tells a deleted row apart from a failed guard.
func (r *UserRepo) missOrStale(ctx context.Context, id string) error {
	q, args, err := psql.Select("1").From("users").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.ErrInternal(err)
	}
	var one int
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound()
		}
		return domain.ErrDBUnavailable(err)
	}
	return domain.ErrStaleWrite()
}
