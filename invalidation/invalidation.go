// Package invalidation distributes cache invalidations over Redis pub/sub.
//
// A writer that changes the backing vector database publishes a Message;
// every cache instance running a Subscriber removes the affected regions.
package invalidation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/proximity/model"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "proximity:invalidate"

// Scope selects what a Message invalidates.
type Scope string

const (
	// ScopeRegion removes entries whose center is within Radius of Center.
	ScopeRegion Scope = "region"
	// ScopeAll removes every entry.
	ScopeAll Scope = "all"
)

// ErrInvalidMessage is returned for messages that cannot be applied.
var ErrInvalidMessage = errors.New("invalidation: invalid message")

// Message is the wire format of an invalidation.
type Message struct {
	Scope  Scope     `json:"scope"`
	Center []float32 `json:"center,omitempty"`
	Radius float64   `json:"radius,omitempty"`
}

// Validate checks that the message is applicable.
func (m Message) Validate() error {
	switch m.Scope {
	case ScopeAll:
		return nil
	case ScopeRegion:
		if len(m.Center) == 0 || m.Radius < 0 {
			return fmt.Errorf("%w: region needs a center and radius >= 0", ErrInvalidMessage)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidMessage, m.Scope)
	}
}

// Invalidator is the part of proximity.Cache a Subscriber drives.
type Invalidator interface {
	InvalidateRegion(ctx context.Context, center model.Vector, radius float64) (int, error)
	InvalidateAll(ctx context.Context) (int, error)
}

// Apply applies m to target and returns the number of removed entries.
func Apply(ctx context.Context, target Invalidator, m Message) (int, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	if m.Scope == ScopeAll {
		return target.InvalidateAll(ctx)
	}
	return target.InvalidateRegion(ctx, model.NewVector(m.Center), m.Radius)
}

// Publisher sends invalidations.
type Publisher struct {
	client  redis.UniversalClient
	channel string
}

// NewPublisher returns a publisher on channel (DefaultChannel if empty).
func NewPublisher(client redis.UniversalClient, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel}
}

// Publish sends m and returns the number of subscribers that received it.
func (p *Publisher) Publish(ctx context.Context, m Message) (int64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	data, err := gojson.Marshal(m)
	if err != nil {
		return 0, err
	}
	return p.client.Publish(ctx, p.channel, data).Result()
}

// SubscriberOptions configures a Subscriber.
type SubscriberOptions struct {
	// Channel is the pub/sub channel (default DefaultChannel).
	Channel string
	// Logger receives apply failures and malformed messages.
	Logger *slog.Logger
	// OnApplied, if set, is called after every applied message.
	OnApplied func(m Message, removed int, err error)
}

// Subscriber applies invalidations received from Redis to a cache.
type Subscriber struct {
	opts   SubscriberOptions
	client redis.UniversalClient
	target Invalidator

	pubsub *redis.PubSub
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSubscriber creates a subscriber. Call Start to begin receiving.
func NewSubscriber(client redis.UniversalClient, target Invalidator, optFns ...func(o *SubscriberOptions)) *Subscriber {
	opts := SubscriberOptions{Channel: DefaultChannel}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Channel == "" {
		opts.Channel = DefaultChannel
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Subscriber{opts: opts, client: client, target: target}
}

// Start subscribes and returns once the subscription is confirmed.
// Messages are applied in order on a background goroutine until ctx is
// done or Close is called.
func (s *Subscriber) Start(ctx context.Context) error {
	ps := s.client.Subscribe(ctx, s.opts.Channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("invalidation: subscribe %s: %w", s.opts.Channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.pubsub = ps
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx, ps.Channel())
	}()

	return nil
}

func (s *Subscriber) loop(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handle(ctx, msg.Payload)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, payload string) {
	var m Message
	if err := gojson.Unmarshal([]byte(payload), &m); err != nil {
		s.opts.Logger.WarnContext(ctx, "malformed invalidation", "error", err)
		return
	}

	removed, err := Apply(ctx, s.target, m)
	if err != nil {
		s.opts.Logger.ErrorContext(ctx, "invalidation failed", "scope", m.Scope, "error", err)
	} else {
		s.opts.Logger.DebugContext(ctx, "invalidation applied", "scope", m.Scope, "removed", removed)
	}

	if s.opts.OnApplied != nil {
		s.opts.OnApplied(m, removed, err)
	}
}

// Close unsubscribes and waits for the receive loop to exit.
func (s *Subscriber) Close() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	err := s.pubsub.Close()
	s.wg.Wait()
	return err
}
