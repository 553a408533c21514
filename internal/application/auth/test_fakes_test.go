package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/baechuer/storefront-auth/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

/*
Fakes for ports
*/

type fakeUserRepo struct {
	mu   sync.Mutex
	byID map[string]domain.User

	// injected errors (if set, method returns error)
	findErr   error
	createErr error
	writeErr  error

	// afterFind runs once, after the next successful lookup and before the
	// caller gets the snapshot back.
	afterFind func()

	creates int
	writes  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]domain.User{}}
}

func (f *fakeUserRepo) put(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.Version == 0 {
		u.Version = 1
	}
	f.byID[u.ID] = u
}

func (f *fakeUserRepo) get(id string) (domain.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	return u, ok
}

func (f *fakeUserRepo) find(match func(domain.User) bool) (domain.User, error) {
	u, err := f.scan(match)
	if err != nil {
		return domain.User{}, err
	}

	f.mu.Lock()
	hook := f.afterFind
	f.afterFind = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return u, nil
}

func (f *fakeUserRepo) scan(match func(domain.User) bool) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return domain.User{}, f.findErr
	}
	for _, u := range f.byID {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f *fakeUserRepo) Create(ctx context.Context, u domain.User) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return "", f.createErr
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return "", domain.ErrEmailAlreadyExists()
		}
	}
	u.Version = 1
	f.byID[u.ID] = u
	f.creates++
	return u.ID, nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return f.find(func(u domain.User) bool { return u.Email == email })
}

func (f *fakeUserRepo) FindByRefreshFingerprint(ctx context.Context, fp string) (domain.User, error) {
	return f.find(func(u domain.User) bool { return u.Refresh != nil && u.Refresh.Fingerprint == fp })
}

func (f *fakeUserRepo) FindByVerificationFingerprint(ctx context.Context, fp string, now time.Time) (domain.User, error) {
	return f.find(func(u domain.User) bool {
		return u.Verification != nil && u.Verification.Fingerprint == fp && u.Verification.ExpiresAt.After(now)
	})
}

func (f *fakeUserRepo) SetSession(ctx context.Context, userID, expectFP string, next *domain.Stamp, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return f.writeErr
	}
	cur, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	if expectFP != "" && (cur.Refresh == nil || cur.Refresh.Fingerprint != expectFP) {
		return domain.ErrStaleWrite()
	}
	cur.Refresh = nil
	if next != nil {
		stamp := *next
		cur.Refresh = &stamp
	}
	cur.UpdatedAt = at
	cur.Version++
	f.byID[userID] = cur
	f.writes++
	return nil
}

func (f *fakeUserRepo) ConsumeVerification(ctx context.Context, userID, fp string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return f.writeErr
	}
	cur, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	if cur.Verification == nil || cur.Verification.Fingerprint != fp || !cur.Verification.ExpiresAt.After(at) {
		return domain.ErrStaleWrite()
	}
	cur.Verification = nil
	cur.Verified = true
	cur.UpdatedAt = at
	cur.Version++
	f.byID[userID] = cur
	f.writes++
	return nil
}

type fakeHasher struct {
	mu       sync.Mutex
	hashErr  error
	compares int
}

func (h *fakeHasher) Hash(ctx context.Context, password string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hash:" + password, nil
}

func (h *fakeHasher) Compare(ctx context.Context, hash string, password string) error {
	h.mu.Lock()
	h.compares++
	h.mu.Unlock()
	if hash != "hash:"+password {
		return errors.New("mismatch")
	}
	return nil
}

func (h *fakeHasher) compareCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.compares
}

type fakeStrength struct {
	err    error
	inputs []string
}

func (s *fakeStrength) Check(ctx context.Context, password string, inputs ...string) error {
	s.inputs = inputs
	return s.err
}

type fakeSigner struct {
	signErr error
}

func (s *fakeSigner) SignAccessToken(userID, name, role string, ttl time.Duration) (string, error) {
	if s.signErr != nil {
		return "", s.signErr
	}
	return fmt.Sprintf("access:%s:%s:%s", userID, role, ttl), nil
}

func (s *fakeSigner) VerifyAccessToken(token string) (TokenClaims, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 4 || parts[0] != "access" {
		return TokenClaims{}, domain.ErrTokenInvalid()
	}
	return TokenClaims{UserID: parts[1], Role: parts[2]}, nil
}

type fakeTokens struct {
	n      atomic.Int64
	genErr error
}

func (t *fakeTokens) Generate() (string, error) {
	if t.genErr != nil {
		return "", t.genErr
	}
	return fmt.Sprintf("raw-%d", t.n.Add(1)), nil
}

func (t *fakeTokens) Fingerprint(raw string) string { return "fp:" + raw }

type sentMail struct {
	email string
	token string
}

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []sentMail
}

func (n *fakeNotifier) SendVerificationEmail(ctx context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{email: email, token: token})
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

/*
Harness
*/

type testDeps struct {
	users    *fakeUserRepo
	hasher   *fakeHasher
	strength *fakeStrength
	signer   *fakeSigner
	tokens   *fakeTokens
	notifier *fakeNotifier
	clock    *fakeClock

	auditMu sync.Mutex
	audits  []auditEntry
}

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 7 * 24 * time.Hour
	testVerifyTTL  = 24 * time.Hour
)

func newSvcForTest(t *testing.T) (*Service, *testDeps) {
	t.Helper()

	d := &testDeps{
		users:    newFakeUserRepo(),
		hasher:   &fakeHasher{},
		strength: &fakeStrength{},
		signer:   &fakeSigner{},
		tokens:   &fakeTokens{},
		notifier: &fakeNotifier{},
		clock:    &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}

	svc := NewService(d.users, d.hasher, d.strength, d.signer, d.tokens, d.notifier, Config{
		AccessTTL:           testAccessTTL,
		RefreshTTL:          testRefreshTTL,
		VerifyEmailTokenTTL: testVerifyTTL,
	}).
		WithClock(d.clock.Now).
		WithAudit(func(action string, fields map[string]string) {
			d.auditMu.Lock()
			defer d.auditMu.Unlock()
			d.audits = append(d.audits, auditEntry{action: action, fields: fields})
		})

	return svc, d
}

// seedUser stores a verified user whose password is pw.
func (d *testDeps) seedUser(id, email, pw string) domain.User {
	u := domain.User{
		ID:           id,
		Name:         "Seeded " + id,
		Email:        email,
		Role:         string(domain.RoleUser),
		PasswordHash: "hash:" + pw,
		Verified:     true,
	}
	d.users.put(u)
	got, _ := d.users.get(id)
	return got
}

func requireDomainCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code=%q, got nil", wantCode)
	}
	if !domain.Is(err, wantCode) {
		t.Fatalf("expected code=%q, got err=%v", wantCode, err)
	}
}

func requireAuditAction(t *testing.T, d *testDeps, wantAction string) auditEntry {
	t.Helper()
	d.auditMu.Lock()
	defer d.auditMu.Unlock()
	for i := len(d.audits) - 1; i >= 0; i-- {
		if d.audits[i].action == wantAction {
			return d.audits[i]
		}
	}
	t.Fatalf("expected audit action=%q, got %+v", wantAction, d.audits)
	return auditEntry{}
}
