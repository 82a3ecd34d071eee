package bus

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultInvalidThreshold is the number of consecutive unrouted events that
// triggers OnTooManyInvalid.
const DefaultInvalidThreshold = 3

// Event is anything that can be routed by its command name.
type Event interface {
	Command() string
}

// Handler receives a published event.
type Handler[E Event] func(E)

// Config holds bus settings.
type Config struct {
	// InvalidThreshold <= 0 disables unrouted-event escalation.
	InvalidThreshold int
}

// DefaultConfig returns the default bus configuration.
func DefaultConfig() Config {
	return Config{InvalidThreshold: DefaultInvalidThreshold}
}

type subscription[E Event] struct {
	id      uuid.UUID
	topic   string
	handler Handler[E]
}

// Bus is a synchronous topic-keyed publish/subscribe router.
type Bus[E Event] struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.RWMutex
	topics   map[string][]subscription[E]
	wildcard []subscription[E]

	onTooManyInvalid atomic.Pointer[func()]
	invalidStreak    atomic.Int32
	closed           atomic.Bool
}

// New creates a bus.
func New[E Event](cfg Config, logger *slog.Logger) *Bus[E] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus[E]{
		cfg:    cfg,
		logger: logger.With("component", "bus"),
		topics: make(map[string][]subscription[E]),
	}
}

// Subscription is the handle returned by Subscribe and SubscribeAll.
type Subscription struct {
	ID     uuid.UUID
	Topic  string
	cancel func(uuid.UUID) bool
	once   sync.Once
}

// Cancel removes the subscription. It is safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() { s.cancel(s.ID) })
}

// Subscribe registers handler for events whose command equals topic.
func (b *Bus[E]) Subscribe(topic string, handler Handler[E]) *Subscription {
	sub := subscription[E]{id: uuid.New(), topic: topic, handler: handler}

	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], sub)
	b.mu.Unlock()

	return &Subscription{ID: sub.id, Topic: topic, cancel: b.Unsubscribe}
}

// SubscribeAll registers handler for every event. Wildcard delivery does
// not count as routing for unrouted-event tracking.
func (b *Bus[E]) SubscribeAll(handler Handler[E]) *Subscription {
	sub := subscription[E]{id: uuid.New(), handler: handler}

	b.mu.Lock()
	b.wildcard = append(b.wildcard, sub)
	b.mu.Unlock()

	return &Subscription{ID: sub.id, cancel: b.Unsubscribe}
}

// Unsubscribe removes a subscription by ID.
// Returns true if the subscription was found and removed.
func (b *Bus[E]) Unsubscribe(id uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := remove(b.wildcard, id); ok {
		b.wildcard = subs
		return true
	}
	for topic, subs := range b.topics {
		if rest, ok := remove(subs, id); ok {
			if len(rest) == 0 {
				delete(b.topics, topic)
			} else {
				b.topics[topic] = rest
			}
			return true
		}
	}
	return false
}

// OnTooManyInvalid sets the callback invoked when the unrouted streak
// reaches the threshold. It runs on the publishing goroutine.
func (b *Bus[E]) OnTooManyInvalid(fn func()) {
	if fn == nil {
		b.onTooManyInvalid.Store(nil)
		return
	}
	b.onTooManyInvalid.Store(&fn)
}

// Publish delivers ev to wildcard subscribers, then to subscribers of
// ev.Command(). A closed bus drops the event.
func (b *Bus[E]) Publish(ev E) {
	if b.closed.Load() {
		return
	}

	topic := ev.Command()

	b.mu.RLock()
	wildcard := make([]subscription[E], len(b.wildcard))
	copy(wildcard, b.wildcard)
	specific := make([]subscription[E], len(b.topics[topic]))
	copy(specific, b.topics[topic])
	b.mu.RUnlock()

	escalate := b.track(topic, len(specific) > 0)

	for _, sub := range wildcard {
		b.safeCall(sub.handler, ev)
	}
	for _, sub := range specific {
		b.safeCall(sub.handler, ev)
	}

	if escalate {
		b.logger.Warn("too many unrouted events", "threshold", b.cfg.InvalidThreshold, "last", topic)
		if fn := b.onTooManyInvalid.Load(); fn != nil {
			b.safeCall(func(E) { (*fn)() }, ev)
		}
	}
}

// track updates the unrouted streak and reports whether it just reached
// the threshold. The streak resets when that happens.
func (b *Bus[E]) track(topic string, routed bool) bool {
	if routed {
		b.invalidStreak.Store(0)
		return false
	}

	n := b.invalidStreak.Add(1)
	b.logger.Debug("unrouted event", "command", topic, "streak", n)

	if b.cfg.InvalidThreshold <= 0 || int(n) < b.cfg.InvalidThreshold {
		return false
	}
	return b.invalidStreak.CompareAndSwap(n, 0)
}

// InvalidStreak returns the current count of consecutive unrouted events.
func (b *Bus[E]) InvalidStreak() int {
	return int(b.invalidStreak.Load())
}

func (b *Bus[E]) safeCall(handler Handler[E], ev E) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"command", ev.Command(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	handler(ev)
}

// Clear removes all subscriptions and resets the unrouted streak.
func (b *Bus[E]) Clear() {
	b.mu.Lock()
	b.topics = make(map[string][]subscription[E])
	b.wildcard = nil
	b.mu.Unlock()
	b.invalidStreak.Store(0)
}

// Close clears the bus and turns further Publish calls into no-ops.
func (b *Bus[E]) Close() {
	b.closed.Store(true)
	b.Clear()
}

// Closed reports whether Close has been called.
func (b *Bus[E]) Closed() bool {
	return b.closed.Load()
}

// SubscriberCount returns the number of topic subscribers for topic.
func (b *Bus[E]) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// SubscriptionCount returns the total number of active subscriptions,
// wildcard included.
func (b *Bus[E]) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := len(b.wildcard)
	for _, subs := range b.topics {
		count += len(subs)
	}
	return count
}

func remove[E Event](subs []subscription[E], id uuid.UUID) ([]subscription[E], bool) {
	for i, sub := range subs {
		if sub.id == id {
			rest := make([]subscription[E], 0, len(subs)-1)
			rest = append(rest, subs[:i]...)
			rest = append(rest, subs[i+1:]...)
			return rest, true
		}
	}
	return subs, false
}
