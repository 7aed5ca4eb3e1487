package stream

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/xraph/talentwire/id"
	"github.com/xraph/talentwire/user"
)

// Identity describes the authenticated principal behind a connection.
type Identity struct {
	Subject id.UserID
	Role    user.Role
}

// BrokerStats is a snapshot of broker counters.
type BrokerStats struct {
	Subscribers    int
	Channels       int
	TotalPublished int64
	TotalDelivered int64
	TotalDropped   int64
}

// Broker fans events out to connected subscribers over named channels.
// Every subscriber joins its canonical channels at registration time
// (derived from identity) and may join additional channels afterwards.
// Publishing is at-most-once per member and never blocks: slow or
// credit-exhausted subscribers have events dropped and counted.
type Broker struct {
	registry *ChannelRegistry

	// subscribers indexes all registered subscribers by connection ID.
	subscribers sync.Map // string -> *Subscriber

	bufferSize     int
	initialCredits int64

	totalPublished atomic.Int64
	totalDelivered atomic.Int64
	totalDropped   atomic.Int64

	mu     sync.Mutex
	closed bool

	logger *slog.Logger
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBufferSize sets the per-subscriber event buffer size.
func WithBufferSize(n int) BrokerOption {
	return func(b *Broker) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// WithInitialCredits sets the flow-control credits granted to new
// subscribers.
func WithInitialCredits(n int64) BrokerOption {
	return func(b *Broker) {
		if n > 0 {
			b.initialCredits = n
		}
	}
}

// WithLogger sets the broker's logger.
func WithLogger(logger *slog.Logger) BrokerOption {
	return func(b *Broker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBroker creates an event broker.
func NewBroker(opts ...BrokerOption) *Broker {
	b := &Broker{
		registry:       NewChannelRegistry(),
		bufferSize:     256,
		initialCredits: 1000,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register creates a subscriber for the connection and joins it to its
// canonical channels: the identity channel derived from the subject and
// role, plus the broadcast channel for admins. Returns the subscriber
// and the channels joined. Registering an already-registered connection
// ID replaces the previous subscriber, closing it first.
func (b *Broker) Register(connID string, identity Identity) (*Subscriber, []string) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, nil
	}
	b.mu.Unlock()

	sub := NewSubscriber(connID, b.bufferSize, b.initialCredits)

	if prev, loaded := b.subscribers.Swap(connID, sub); loaded {
		b.remove(prev.(*Subscriber))
	}

	channels := []string{ChannelFor(identity.Subject, identity.Role)}
	if identity.Role == user.RoleAdmin {
		channels = append(channels, ChannelBroadcast)
	}
	for _, ch := range channels {
		b.registry.Subscribe(ch, sub)
	}

	b.logger.Debug("subscriber registered",
		slog.String("conn_id", connID),
		slog.String("subject", identity.Subject.String()),
		slog.String("role", string(identity.Role)))

	return sub, channels
}

// Subscribe joins an already-registered connection to an additional
// channel. Returns false if the connection is not registered.
func (b *Broker) Subscribe(connID, channel string) bool {
	v, ok := b.subscribers.Load(connID)
	if !ok {
		return false
	}
	b.registry.Subscribe(channel, v.(*Subscriber))
	return true
}

// Unsubscribe removes a connection from a channel. Returns false if the
// connection is not registered.
func (b *Broker) Unsubscribe(connID, channel string) bool {
	if _, ok := b.subscribers.Load(connID); !ok {
		return false
	}
	b.registry.Unsubscribe(channel, connID)
	return true
}

// Unregister removes a connection entirely: leaves all channels and
// closes the subscriber. Idempotent.
func (b *Broker) Unregister(connID string) {
	v, loaded := b.subscribers.LoadAndDelete(connID)
	if !loaded {
		return
	}
	b.remove(v.(*Subscriber))
	b.logger.Debug("subscriber unregistered", slog.String("conn_id", connID))
}

func (b *Broker) remove(sub *Subscriber) {
	b.registry.UnsubscribeAll(sub.ID())
	sub.Close()
}

// GetSubscriber returns the subscriber for a connection ID.
func (b *Broker) GetSubscriber(connID string) (*Subscriber, bool) {
	v, ok := b.subscribers.Load(connID)
	if !ok {
		return nil, false
	}
	return v.(*Subscriber), true
}

// AddCredits grants additional flow-control credits to a connection.
func (b *Broker) AddCredits(connID string, n int64) bool {
	v, ok := b.subscribers.Load(connID)
	if !ok {
		return false
	}
	v.(*Subscriber).AddCredits(n)
	return true
}

// Publish delivers an event to every current member of its channel.
// Membership is snapshotted at publish time; each member receives the
// event at most once. Returns the number of successful deliveries.
// Publishing to a channel with no members is a no-op.
func (b *Broker) Publish(evt *Event) int {
	b.totalPublished.Add(1)

	delivered, dropped := b.registry.Publish(evt.Channel, evt)
	b.totalDelivered.Add(int64(delivered))
	if dropped > 0 {
		b.totalDropped.Add(int64(dropped))
		b.logger.Warn("events dropped",
			slog.String("channel", evt.Channel),
			slog.String("type", string(evt.Type)),
			slog.Int("dropped", dropped))
	}
	return delivered
}

// Members returns the connection IDs currently on a channel.
func (b *Broker) Members(channel string) []string {
	return b.registry.Members(channel)
}

// Stats returns a snapshot of broker counters.
func (b *Broker) Stats() BrokerStats {
	count := 0
	b.subscribers.Range(func(_, _ any) bool {
		count++
		return true
	})
	return BrokerStats{
		Subscribers:    count,
		Channels:       b.registry.ChannelCount(),
		TotalPublished: b.totalPublished.Load(),
		TotalDelivered: b.totalDelivered.Load(),
		TotalDropped:   b.totalDropped.Load(),
	}
}

// Close shuts down the broker, closing every subscriber. Further
// registrations are rejected.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.subscribers.Range(func(key, value any) bool {
		b.subscribers.Delete(key)
		b.remove(value.(*Subscriber))
		return true
	})
}
