package memory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/baechuer/storefront-auth/internal/application/auth"
	"github.com/baechuer/storefront-auth/internal/domain"
	"github.com/baechuer/storefront-auth/internal/infrastructure/memory"
	"github.com/baechuer/storefront-auth/internal/infrastructure/security"
)

func newService(t *testing.T) (*auth.Service, *memory.UserRepo, *memory.LogNotifier) {
	t.Helper()

	users := memory.NewUserRepo()
	svc, notifier := newServiceWith(t, users)
	return svc, users, notifier
}

func newServiceWith(t *testing.T, users auth.UserRepo) (*auth.Service, *memory.LogNotifier) {
	t.Helper()

	pool := security.NewPool(4)
	notifier := memory.NewLogNotifier()
	svc := auth.NewService(
		users,
		security.NewBcryptHasher(bcrypt.MinCost, pool),
		security.NewStrengthGate(security.DefaultMinScore, pool),
		security.NewJWTSigner("test-secret", "storefront-auth"),
		security.NewOpaqueTokens(32),
		notifier,
		auth.Config{},
	)
	return svc, notifier
}

// interleavingRepo runs between after the next successful lookup by email
// or verification fingerprint, once per arming.
type interleavingRepo struct {
	*memory.UserRepo
	between func()
	armed   atomic.Bool
}

func (r *interleavingRepo) fire() {
	if r.armed.CompareAndSwap(true, false) {
		r.between()
	}
}

func (r *interleavingRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := r.UserRepo.FindByEmail(ctx, email)
	if err == nil {
		r.fire()
	}
	return u, err
}

func (r *interleavingRepo) FindByVerificationFingerprint(ctx context.Context, fp string, now time.Time) (domain.User, error) {
	u, err := r.UserRepo.FindByVerificationFingerprint(ctx, fp, now)
	if err == nil {
		r.fire()
	}
	return u, err
}

func TestFlow_SignupVerifyLogin(t *testing.T) {
	ctx := context.Background()
	svc, users, notifier := newService(t)

	res, err := svc.Signup(ctx, auth.SignupInput{Name: "Alice", Email: "alice@test.com", Password: "Xk9#mQ72vL!pR"})
	require.NoError(t, err)
	assert.False(t, res.User.Verified)

	stored, err := users.FindByEmail(ctx, "alice@test.com")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("Xk9#mQ72vL!pR")))

	token, ok := notifier.LastToken("alice@test.com")
	require.True(t, ok)
	require.NoError(t, svc.VerifyEmail(ctx, auth.VerifyEmailInput{Token: token}))

	stored, err = users.FindByEmail(ctx, "alice@test.com")
	require.NoError(t, err)
	assert.True(t, stored.Verified)

	login, err := svc.Login(ctx, auth.LoginInput{Email: "alice@test.com", Password: "Xk9#mQ72vL!pR"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", login.User.Name)
}

func TestFlow_WeakPasswordRejected(t *testing.T) {
	svc, users, _ := newService(t)

	_, err := svc.Signup(context.Background(), auth.SignupInput{Name: "Alice", Email: "alice@test.com", Password: "password123"})
	assert.Equal(t, domain.KindWeakCredential, domain.KindOf(err))

	_, err = users.FindByEmail(context.Background(), "alice@test.com")
	assert.True(t, domain.Is(err, "user_not_found"))
}

func TestFlow_ConcurrentRefresh_ExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	res, err := svc.Signup(ctx, auth.SignupInput{Name: "Bob", Email: "bob@test.com", Password: "Xk9#mQ72vL!pR"})
	require.NoError(t, err)

	const n = 20
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Refresh(ctx, auth.RefreshInput{RefreshToken: res.Tokens.RefreshToken})
			if err == nil {
				wins.Add(1)
				return
			}
			assert.True(t, domain.Is(err, "refresh_token_invalid"), "got %v", err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestFlow_LoginAndVerifyDuringRefresh(t *testing.T) {
	ctx := context.Background()
	users := &interleavingRepo{UserRepo: memory.NewUserRepo()}
	svc, notifier := newServiceWith(t, users)

	res, err := svc.Signup(ctx, auth.SignupInput{Name: "Erin", Email: "erin@test.com", Password: "Xk9#mQ72vL!pR"})
	require.NoError(t, err)
	verifyToken, ok := notifier.LastToken("erin@test.com")
	require.True(t, ok)

	current := res.Tokens.RefreshToken
	rotate := func() {
		toks, err := svc.Refresh(ctx, auth.RefreshInput{RefreshToken: current})
		assert.NoError(t, err)
		current = toks.RefreshToken
	}

	users.between = rotate
	users.armed.Store(true)
	require.NoError(t, svc.VerifyEmail(ctx, auth.VerifyEmailInput{Token: verifyToken}))
	require.NotEqual(t, res.Tokens.RefreshToken, current)

	users.armed.Store(true)
	_, err = svc.Login(ctx, auth.LoginInput{Email: "erin@test.com", Password: "Xk9#mQ72vL!pR"})
	require.NoError(t, err)

	stored, err := users.FindByEmail(ctx, "erin@test.com")
	require.NoError(t, err)
	assert.True(t, stored.Verified)
}

func TestSeedUsers_Idempotent(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepo()
	hasher := security.NewBcryptHasher(bcrypt.MinCost, nil)

	memory.SeedUsers(ctx, users, hasher)
	memory.SeedUsers(ctx, users, hasher)

	admin, err := users.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, string(domain.RoleAdmin), admin.Role)
	assert.True(t, admin.Verified)
	assert.NoError(t, hasher.Compare(ctx, admin.PasswordHash, "AdminPassword123!"))
}
