package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/baechuer/storefront-auth/internal/logger"
)

const (
	DefaultExchange = "storefront.events"

	RoutingVerifyEmail = "auth.email.verify.requested"

	// upper bound on waiting for the broker confirm when ctx has no deadline
	publishWait = 2 * time.Second
)

// VerifyEmailEvent is consumed by the mail service, which owns delivery.
type VerifyEmailEvent struct {
	Email       string    `json:"email"`
	URL         string    `json:"url"`
	RequestedAt time.Time `json:"requested_at"`
}

// Notifier publishes verification requests to a topic exchange with
// publisher confirms and mandatory routing, so a message nobody can
// receive fails the signup instead of vanishing.
type Notifier struct {
	url      string
	exchange string
	baseURL  string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewNotifier(amqpURL, exchange, verifyBaseURL string) (*Notifier, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	n := &Notifier{
		url:      amqpURL,
		exchange: exchange,
		baseURL:  verifyBaseURL,
	}
	if err := n.connect(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetConn()
	return nil
}

// ---- auth.Notifier ----

func (n *Notifier) SendVerificationEmail(ctx context.Context, email, token string) error {
	evt := VerifyEmailEvent{
		Email:       email,
		URL:         VerifyLink(n.baseURL, token),
		RequestedAt: time.Now().UTC(),
	}
	if err := n.publishJSON(ctx, RoutingVerifyEmail, evt); err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Str("routing_key", RoutingVerifyEmail).Msg("verification publish failed")
		return err
	}
	return nil
}

// VerifyLink appends the escaped token to a base URL ending in "token=".
func VerifyLink(baseURL, token string) string {
	return baseURL + url.QueryEscape(token)
}

// ---- internal ----

func (n *Notifier) connect() error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	// Declare topic exchange (idempotent).
	if err := ch.ExchangeDeclare(
		n.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("exchange declare: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("confirm mode: %w", err)
	}

	n.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	n.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))

	n.conn = conn
	n.ch = ch
	return nil
}

func (n *Notifier) ensureConnected() error {
	if n.conn != nil && !n.conn.IsClosed() && n.ch != nil {
		return nil
	}
	n.resetConn()
	return n.connect()
}

func (n *Notifier) publishJSON(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	// Ensure there is a deadline to avoid blocking forever.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, publishWait)
		defer cancel()
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.ensureConnected(); err != nil {
		return err
	}

	// Drain any stale confirm / return messages to avoid mixing results.
drain:
	for {
		select {
		case <-n.confirmCh:
		case <-n.returnCh:
		default:
			break drain
		}
	}

	if err := n.ch.PublishWithContext(
		ctx,
		n.exchange,
		routingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	); err != nil {
		n.resetConn()
		return fmt.Errorf("publish failed: %w", err)
	}

	// the broker sends basic.return before the ack of an unroutable message
	select {
	case ret := <-n.returnCh:
		return unroutable(routingKey, ret)

	case conf := <-n.confirmCh:
		select {
		case ret := <-n.returnCh:
			return unroutable(routingKey, ret)
		default:
		}
		if !conf.Ack {
			return fmt.Errorf("rabbitmq nack: key=%s deliveryTag=%d", routingKey, conf.DeliveryTag)
		}
		return nil

	case <-ctx.Done():
		return fmt.Errorf("rabbitmq publish timeout: key=%s: %w", routingKey, ctx.Err())
	}
}

func unroutable(routingKey string, ret amqp.Return) error {
	return fmt.Errorf(
		"rabbitmq unroutable: key=%s code=%d text=%s",
		routingKey, ret.ReplyCode, strings.TrimSpace(ret.ReplyText),
	)
}

func (n *Notifier) resetConn() {
	if n.ch != nil {
		_ = n.ch.Close()
		n.ch = nil
	}
	if n.conn != nil {
		_ = n.conn.Close()
		n.conn = nil
	}
}
