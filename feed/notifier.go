package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

type listener struct {
	id   int
	pred Predicate
	fn   Callback
}

// Notifier relays issue events to registered listeners. Dispatch is
// synchronous and in registration order; a panicking listener is isolated
// so it cannot break delivery to the rest or kill the channel.
type Notifier struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger

	mu        sync.Mutex
	listeners []*listener
	nextID    int

	pubsub    *redis.PubSub
	closeOnce sync.Once
}

func NewNotifier(client *redis.Client, channel string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{client: client, channel: channel, logger: logger}
}

// Register adds a listener and returns its idempotent unsubscribe function.
func (n *Notifier) Register(pred Predicate, fn Callback) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	l := &listener{id: n.nextID, pred: pred, fn: fn}
	n.listeners = append(n.listeners, l)

	id := l.id
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		for i, cur := range n.listeners {
			if cur.id == id {
				n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
				return
			}
		}
	}
}

// UnregisterAll drops every listener.
func (n *Notifier) UnregisterAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = nil
}

// Dispatch delivers ev to every listener whose predicate matches.
func (n *Notifier) Dispatch(ev Event) {
	n.mu.Lock()
	matched := make([]*listener, 0, len(n.listeners))
	for _, l := range n.listeners {
		if l.pred == nil || l.pred(ev) {
			matched = append(matched, l)
		}
	}
	n.mu.Unlock()

	for _, l := range matched {
		n.deliver(l, ev)
	}
}

func (n *Notifier) deliver(l *listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("feed listener panicked", "listener", l.id, "kind", ev.Kind, "panic", r)
		}
	}()
	l.fn(ev)
}

// Start subscribes to the Redis feed channel and relays events until ctx
// is done or Close is called. Live updates are a non-critical enhancement,
// so a failed subscription logs and degrades to a no-op.
func (n *Notifier) Start(ctx context.Context) {
	pubsub := n.client.Subscribe(ctx, n.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		n.logger.Warn("live feed unavailable, continuing without realtime updates", "error", err)
		_ = pubsub.Close()
		return
	}
	n.pubsub = pubsub

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					n.logger.Warn("dropping malformed feed event", "error", err)
					continue
				}
				n.Dispatch(ev)
			}
		}
	}()
}

// Close tears down the Redis subscription. Safe to call more than once.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() {
		if n.pubsub != nil {
			_ = n.pubsub.Close()
		}
	})
}
