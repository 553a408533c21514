package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/storefront-auth/internal/logger"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := logger.Logger
	logger.Logger = zerolog.New(&buf)
	t.Cleanup(func() { logger.Logger = prev })
	return &buf
}

func TestLogNotifier_KeepsTokenOutOfLog(t *testing.T) {
	buf := captureLog(t)
	n := NewLogNotifier()

	require.NoError(t, n.SendVerificationEmail(context.Background(), "a@test.com", "raw-secret"))

	assert.Contains(t, buf.String(), "a@test.com")
	assert.NotContains(t, buf.String(), "raw-secret")
	tok, ok := n.LastToken("a@test.com")
	require.True(t, ok)
	assert.Equal(t, "raw-secret", tok)
}

func TestLogNotifier_WithVerifyLinks_LogsLink(t *testing.T) {
	buf := captureLog(t)
	n := NewLogNotifier().WithVerifyLinks(func(token string) string {
		return "http://localhost/verify?token=" + token
	})

	require.NoError(t, n.SendVerificationEmail(context.Background(), "a@test.com", "raw-secret"))

	assert.Contains(t, buf.String(), `"verify_url":"http://localhost/verify?token=raw-secret"`)
}
