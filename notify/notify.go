// Package notify pushes live updates (profile balances, support-ticket messages)
// to subscribers. Delivery is best effort; the ledger never depends on it.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/decred/slog"
	"github.com/redis/go-redis/v9"
)

// ProfileChannel is the channel carrying a user's profile after every balance change.
func ProfileChannel(userID string) string {
	return "profile:" + userID
}

// TicketChannel is the channel carrying new messages of a support ticket.
func TicketChannel(ticketID string) string {
	return "ticket:" + ticketID
}

// Publisher is the fire-and-forget sink services publish to.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload interface{})
}

// Subscription is a live feed of raw JSON payloads.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// Hub publishes and can open subscriptions for SSE streams.
type Hub interface {
	Publisher
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// RedisHub implements Hub on Redis pub/sub.
type RedisHub struct {
	client *redis.Client
	log    slog.Logger
}

// NewRedisHub parses a redis:// URL and verifies the connection.
func NewRedisHub(ctx context.Context, redisURL string, log slog.Logger) (*RedisHub, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisHub{client: client, log: log}, nil
}

func (h *RedisHub) Publish(ctx context.Context, channel string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Errorf("[NOTIFY] failed to encode payload for %s: %v", channel, err)
		return
	}
	if err := h.client.Publish(ctx, channel, data).Err(); err != nil {
		h.log.Warnf("[NOTIFY] publish to %s failed: %v", channel, err)
	}
}

func (h *RedisHub) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	ps := h.client.Subscribe(ctx, channel)
	// wait for the subscription confirmation so early publishes are not lost
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	sub := &redisSubscription{ps: ps, out: make(chan []byte, 16), done: make(chan struct{})}
	go sub.pump()
	return sub, nil
}

func (h *RedisHub) Close() error {
	return h.client.Close()
}

type redisSubscription struct {
	ps   *redis.PubSub
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func (s *redisSubscription) pump() {
	defer close(s.out)
	ch := s.ps.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			select {
			case s.out <- []byte(msg.Payload):
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisSubscription) Messages() <-chan []byte {
	return s.out
}

func (s *redisSubscription) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.ps.Close()
}

// Nop drops every publish and refuses subscriptions. Used when REDIS_URL is unset.
type Nop struct{}

// ErrNoHub is returned by Nop.Subscribe.
var ErrNoHub = errors.New("live updates are not configured")

func (Nop) Publish(context.Context, string, interface{}) {}

func (Nop) Subscribe(context.Context, string) (Subscription, error) {
	return nil, ErrNoHub
}
