package http_handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/baechuer/storefront-auth/internal/application/auth"
	"github.com/baechuer/storefront-auth/internal/infrastructure/memory"
	"github.com/baechuer/storefront-auth/internal/infrastructure/security"
	"github.com/baechuer/storefront-auth/internal/transport/http/middleware"
	"github.com/baechuer/storefront-auth/internal/transport/http/response"
)

const strongPassword = "Xk9#mQ72vL!pR"

type testEnv struct {
	router   http.Handler
	users    *memory.UserRepo
	notifier *memory.LogNotifier
}

// newTestEnv wires the handlers over the in-memory store and the real
// security components.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	pool := security.NewPool(4)
	users := memory.NewUserRepo()
	notifier := memory.NewLogNotifier()
	signer := security.NewJWTSigner("handler-test-secret", "storefront-auth")

	svc := auth.NewService(
		users,
		security.NewBcryptHasher(bcrypt.MinCost, pool),
		security.NewStrengthGate(security.DefaultMinScore, pool),
		signer,
		security.NewOpaqueTokens(32),
		notifier,
		auth.Config{},
	)
	h := NewAuthHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Post("/signup", h.Signup)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Post("/refresh-token", h.RefreshToken)
	r.Get("/verify-email", h.VerifyEmail)
	r.With(middleware.Auth(signer, response.WriteError)).Get("/me", h.Me)

	return &testEnv{router: r, users: users, notifier: notifier}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		rd = mustJSONBody(t, b)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// mustReadData decodes the {"data": ...} envelope into out.
func mustReadData(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil || len(env.Data) == 0 {
		t.Fatalf("decode envelope failed; body=%s", rr.Body.String())
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data: %v; body=%s", err, rr.Body.String())
	}
}

// mustErrCode returns error.code from an error body.
func mustErrCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var body response.ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v; body=%s", err, rr.Body.String())
	}
	return body.Error.Code
}
