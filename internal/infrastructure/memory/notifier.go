package memory

import (
	"context"
	"sync"

	"github.com/baechuer/storefront-auth/internal/logger"
)

// LogNotifier stands in for the message broker in dev. It logs that a
// verification mail was requested and keeps the token for local inspection.
// The token reaches the log only through the link builder set by
// WithVerifyLinks.
type LogNotifier struct {
	mu   sync.Mutex
	last map[string]string // email -> raw token
	link func(token string) string
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{last: make(map[string]string)}
}

func (n *LogNotifier) SendVerificationEmail(ctx context.Context, email, token string) error {
	n.mu.Lock()
	n.last[email] = token
	n.mu.Unlock()

	ev := logger.WithCtx(ctx).Info().Str("email", email)
	if n.link != nil {
		ev = ev.Str("verify_url", n.link(token))
	}
	ev.Msg("verification email requested (log notifier)")
	return nil
}

// WithVerifyLinks logs the full verification link built by link. Dev only.
func (n *LogNotifier) WithVerifyLinks(link func(token string) string) *LogNotifier {
	n.link = link
	return n
}

// LastToken returns the most recent token sent to email.
func (n *LogNotifier) LastToken(email string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	tok, ok := n.last[email]
	return tok, ok
}

func (n *LogNotifier) Close() error { return nil }
