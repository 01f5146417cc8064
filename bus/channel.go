package bus

import (
	"sync"
	"time"

	"github.com/hupe1980/evomesh/core"
	"github.com/hupe1980/evomesh/logging"
)

// DefaultHistoryCapacity bounds the retained event history; the oldest event
// is evicted once the capacity is exceeded.
const DefaultHistoryCapacity = 1000

// Options holds configuration overrides passed to New().
type Options struct {
	// HistoryCapacity bounds the in-memory history ring.
	HistoryCapacity int
	// EventLog, when set, persists every published event and replays the
	// retained log into history at construction time.
	EventLog *EventLog
	// Logger receives handler failure and persistence failure reports.
	Logger logging.Logger
}

// Statistics summarizes the channel's retained history.
type Statistics struct {
	TotalEvents int
	Counts      map[core.EventName]int
	HistorySize int
	Oldest      time.Time
	Newest      time.Time
}

// Channel is the concrete core.Channel implementation. Safe for concurrent
// use; handlers may publish recursively from within a delivery.
type Channel struct {
	mu          sync.Mutex
	history     []core.Event
	capacity    int
	subscribers map[core.EventName][]core.Handler
	counts      map[core.EventName]int
	total       int
	eventLog    *EventLog
	logger      logging.Logger
}

var _ core.Channel = (*Channel)(nil)

// New constructs a Channel with optional overrides. If an event log is
// configured, its retained records are replayed into history (counting toward
// totals) so a restarted process can serve SubscribeWithReplay immediately.
func New(optFns ...func(o *Options)) *Channel {
	opts := Options{
		HistoryCapacity: DefaultHistoryCapacity,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	c := &Channel{
		capacity:    opts.HistoryCapacity,
		subscribers: make(map[core.EventName][]core.Handler),
		counts:      make(map[core.EventName]int),
		eventLog:    opts.EventLog,
		logger:      opts.Logger,
	}

	if c.eventLog != nil {
		if err := c.eventLog.Replay(func(ev core.Event) {
			c.record(ev)
		}); err != nil {
			c.logger.Warn("event log replay failed: %v", err)
		}
	}

	return c
}

// Publish records the event, appends it to history (evicting the oldest past
// capacity), persists it best-effort, then invokes every current subscriber
// of the name synchronously in subscription order. Persistence and handler
// failures are logged and swallowed; Publish always completes.
func (c *Channel) Publish(name core.EventName, payload core.Payload) core.Event {
	ev := core.NewEvent(name, payload)

	c.mu.Lock()
	c.record(ev)
	handlers := append([]core.Handler(nil), c.subscribers[name]...)
	c.mu.Unlock()

	if c.eventLog != nil {
		if err := c.eventLog.Append(ev); err != nil {
			c.logger.Warn("failed to persist event %s (%s): %v", ev.ID, ev.Name, err)
		}
	}

	for _, h := range handlers {
		c.invoke(h, ev)
	}

	return ev
}

// Subscribe registers a handler for future publishes of name. Multiple
// handlers per name are allowed and all are invoked on every publish.
func (c *Channel) Subscribe(name core.EventName, handler core.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers[name] = append(c.subscribers[name], handler)
}

// SubscribeWithReplay first invokes handler once per each of the most recent
// count matching historical events (oldest first), then registers it for
// future publishes. Fewer than count retained events replay exactly as many
// as exist. Publishes that land while the replay is still in flight are held
// back and delivered after it, so the handler never observes a newer event
// before an older one.
func (c *Channel) SubscribeWithReplay(name core.EventName, handler core.Handler, count int) {
	buf := &replayBuffer{handler: handler}

	c.mu.Lock()
	var replay []core.Event
	for _, ev := range c.history {
		if ev.Name == name {
			replay = append(replay, ev)
		}
	}
	if count >= 0 && len(replay) > count {
		replay = replay[len(replay)-count:]
	}
	c.subscribers[name] = append(c.subscribers[name], buf.deliver)
	c.mu.Unlock()

	for _, ev := range replay {
		c.invoke(handler, ev)
	}

	buf.flush(func(ev core.Event) { c.invoke(handler, ev) })
}

// replayBuffer queues live deliveries for a freshly registered subscriber
// until its historical replay has finished.
type replayBuffer struct {
	mu      sync.Mutex
	pending []core.Event
	live    bool
	handler core.Handler
}

// deliver is the handler actually registered on the channel. While the
// subscriber is not yet live it queues the event; afterwards it forwards
// directly. Panic isolation is provided by the channel's invoke wrapper.
func (b *replayBuffer) deliver(ev core.Event) {
	b.mu.Lock()
	if !b.live {
		b.pending = append(b.pending, ev)
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	b.handler(ev)
}

// flush drains queued events in arrival order, then marks the subscriber
// live. Draining one event at a time keeps events queued by a concurrent
// publish during the drain in order as well.
func (b *replayBuffer) flush(invoke func(core.Event)) {
	for {
		b.mu.Lock()
		if len(b.pending) == 0 {
			b.live = true
			b.mu.Unlock()
			return
		}
		ev := b.pending[0]
		b.pending = b.pending[1:]
		b.mu.Unlock()

		invoke(ev)
	}
}

// Register wires a consumer's declared event names in one call, so component
// wiring happens once at startup rather than ad hoc across modules.
func (c *Channel) Register(consumer core.Consumer) {
	for _, name := range consumer.Consumes() {
		c.Subscribe(name, consumer.HandleEvent)
	}
}

// GetStatistics returns total event count, per-name counts and the timestamp
// span of the retained history.
func (c *Channel) GetStatistics() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Statistics{
		TotalEvents: c.total,
		Counts:      make(map[core.EventName]int, len(c.counts)),
		HistorySize: len(c.history),
	}
	for k, v := range c.counts {
		stats.Counts[k] = v
	}
	if len(c.history) > 0 {
		stats.Oldest = c.history[0].Timestamp
		stats.Newest = c.history[len(c.history)-1].Timestamp
	}
	return stats
}

// History returns a defensive copy of the retained events, oldest first.
func (c *Channel) History() []core.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]core.Event, len(c.history))
	copy(cp, c.history)
	return cp
}

// record appends an event to history and updates counters. Caller must hold
// the mutex except during construction-time replay.
func (c *Channel) record(ev core.Event) {
	c.history = append(c.history, ev)
	if c.capacity > 0 && len(c.history) > c.capacity {
		c.history = c.history[1:]
	}
	c.counts[ev.Name]++
	c.total++
}

// invoke runs a single handler, isolating panics so sibling subscribers and
// subsequent publishes are unaffected.
func (c *Channel) invoke(h core.Handler, ev core.Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("subscriber for %s panicked: %v", ev.Name, r)
		}
	}()
	h(ev)
}
