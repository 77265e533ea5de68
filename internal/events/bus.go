package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Event types published by the client.
const (
	TypeLoginRequired = "session.login_required"
	TypeLoggedIn      = "session.logged_in"
	TypeLoggedOut     = "session.logged_out"
)

// Event is a session event seen by every process sharing a credential store.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Origin    string    `json:"origin,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Bus fans events out to local subscribers and, when configured, to Redis.
type Bus struct {
	id     string
	client redis.UniversalClient
	logger *slog.Logger
	ch     string

	mu          sync.RWMutex
	subscribers map[chan Event]struct{}

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// Options configure the bus.
type Options struct {
	Client  redis.UniversalClient
	Logger  *slog.Logger
	Channel string
}

// NewBus creates a bus. With a Redis client it also relays events published
// by other processes on the same channel.
func NewBus(opts Options) *Bus {
	channel := opts.Channel
	if channel == "" {
		channel = "power-client-events"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bus := &Bus{
		id:          uuid.NewString(),
		client:      opts.Client,
		logger:      logger,
		ch:          channel,
		subscribers: make(map[chan Event]struct{}),
		stop:        make(chan struct{}),
	}
	if bus.client != nil {
		bus.wg.Add(1)
		go bus.observeRedis()
	}
	return bus
}

// Publish delivers evt to local subscribers and to Redis.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt.Origin = b.id

	b.broadcast(evt)

	if b.client != nil {
		payload, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		if err := b.client.Publish(ctx, b.ch, payload).Err(); err != nil {
			return fmt.Errorf("redis publish: %w", err)
		}
	}
	return nil
}

// Subscribe registers a subscriber. The channel closes when ctx ends or
// cancel is called.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, ch)
			close(ch)
			b.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.stop:
		}
		cancel()
	}()

	return ch, cancel
}

// Close stops the Redis relay and closes every subscriber.
func (b *Bus) Close() {
	b.once.Do(func() { close(b.stop) })
	b.wg.Wait()
}

func (b *Bus) broadcast(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			b.logger.Warn("events: dropping event", "id", evt.ID, "type", evt.Type)
		}
	}
}

func (b *Bus) observeRedis() {
	defer b.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-b.stop
		cancel()
	}()

	pubsub := b.client.Subscribe(ctx, b.ch)
	defer pubsub.Close()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Warn("events: redis subscriber error", "error", err)
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		var evt Event
		if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
			b.logger.Warn("events: invalid payload", "error", err)
			continue
		}
		if evt.Origin == b.id {
			continue
		}
		b.broadcast(evt)
	}
}
