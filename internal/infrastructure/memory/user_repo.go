package memory

import (
	"context"
	"sync"
	"time"

	"github.com/baechuer/storefront-auth/internal/domain"
)

// UserRepo is the in-memory credential store used for dev and tests.
// Fingerprint indexes are exact-match maps kept in step with byID.
type UserRepo struct {
	mu       sync.RWMutex
	byID     map[string]domain.User
	byEmail  map[string]string // email -> userID
	byRefFP  map[string]string // refresh fingerprint -> userID
	byVerFP  map[string]string // verification fingerprint -> userID
	nowClock func() time.Time
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:     make(map[string]domain.User),
		byEmail:  make(map[string]string),
		byRefFP:  make(map[string]string),
		byVerFP:  make(map[string]string),
		nowClock: time.Now,
	}
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.ID == "" {
		return "", domain.ErrMissingField("id")
	}
	if _, exists := r.byEmail[u.Email]; exists {
		return "", domain.ErrEmailAlreadyExists()
	}
	if _, exists := r.byID[u.ID]; exists {
		return "", domain.ErrInternal(nil)
	}

	now := r.nowClock()
	u.Version = 1
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}

	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	r.index(u)
	return u.ID, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lookup(r.byEmail, domain.NormalizeEmail(email))
}

func (r *UserRepo) FindByRefreshFingerprint(ctx context.Context, fp string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lookup(r.byRefFP, fp)
}

func (r *UserRepo) FindByVerificationFingerprint(ctx context.Context, fp string, now time.Time) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, err := r.lookup(r.byVerFP, fp)
	if err != nil {
		return domain.User{}, err
	}
	if u.Verification == nil || !u.Verification.ExpiresAt.After(now) {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

// SetSession swaps the session stamp. Other fields are left as stored.
func (r *UserRepo) SetSession(ctx context.Context, userID, expectFP string, next *domain.Stamp, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	if expectFP != "" && (cur.Refresh == nil || cur.Refresh.Fingerprint != expectFP) {
		return domain.ErrStaleWrite()
	}

	if cur.Refresh != nil {
		delete(r.byRefFP, cur.Refresh.Fingerprint)
	}
	cur.Refresh = nil
	if next != nil {
		stamp := *next
		cur.Refresh = &stamp
		r.byRefFP[stamp.Fingerprint] = userID
	}
	r.touch(&cur, at)
	return nil
}

// ConsumeVerification marks the user verified and drops the verification stamp.
func (r *UserRepo) ConsumeVerification(ctx context.Context, userID, fp string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	v := cur.Verification
	if v == nil || v.Fingerprint != fp || !v.ExpiresAt.After(at) {
		return domain.ErrStaleWrite()
	}

	delete(r.byVerFP, v.Fingerprint)
	cur.Verification = nil
	cur.Verified = true
	r.touch(&cur, at)
	return nil
}

func (r *UserRepo) touch(u *domain.User, at time.Time) {
	if at.IsZero() {
		at = r.nowClock()
	}
	u.UpdatedAt = at
	u.Version++
	r.byID[u.ID] = *u
}

func (r *UserRepo) lookup(idx map[string]string, key string) (domain.User, error) {
	if key == "" {
		return domain.User{}, domain.ErrUserNotFound()
	}
	id, ok := idx[key]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.byID[id], nil
}

func (r *UserRepo) index(u domain.User) {
	if u.Refresh != nil {
		r.byRefFP[u.Refresh.Fingerprint] = u.ID
	}
	if u.Verification != nil {
		r.byVerFP[u.Verification.Fingerprint] = u.ID
	}
}
