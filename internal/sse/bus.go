package sse

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/subaccounts/notes-server/internal/domain"
)

const (
	defaultQueueSize  = 1000
	defaultHeartbeat  = 30 * time.Second
	clientQueueSize   = 100
	writeDeadlineStep = 60 * time.Second
)

// Handler receives published events. Handlers run one at a time on the
// dispatching goroutine and must return quickly.
type Handler func(Event)

type subscription struct {
	account string
	handler Handler
}

// Stats counts bus traffic since start.
type Stats struct {
	Published uint64 `json:"published"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
	Clients   int    `json:"clients"`
}

// Manager is the process-wide notification bus. Emit queues an event;
// Start dispatches it to in-process subscribers first and then to the
// connected SSE clients whose account matches.
type Manager struct {
	logger    *slog.Logger
	queue     chan Event
	heartbeat time.Duration

	mu      sync.RWMutex
	subs    map[uint64]subscription
	clients map[string]*Client
	nextSub uint64

	closeMu sync.RWMutex
	closed  bool
	running sync.WaitGroup

	published, delivered, dropped atomic.Uint64
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithHeartbeatInterval sets how often clients receive a heartbeat.
func WithHeartbeatInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.heartbeat = d
		}
	}
}

// WithBufferSize sets the capacity of the event queue.
func WithBufferSize(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.queue = make(chan Event, n)
		}
	}
}

// NewManager creates a bus. It panics on a nil logger.
func NewManager(logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		panic("sse: nil logger")
	}
	m := &Manager{
		logger:    logger,
		queue:     make(chan Event, defaultQueueSize),
		heartbeat: defaultHeartbeat,
		subs:      make(map[uint64]subscription),
		clients:   make(map[string]*Client),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start runs the dispatch loop until ctx is done or the queue closed by
// Shutdown is drained. Call it once, in its own goroutine.
func (m *Manager) Start(ctx context.Context) {
	m.closeMu.RLock()
	if m.closed {
		m.closeMu.RUnlock()
		return
	}
	m.running.Add(1)
	m.closeMu.RUnlock()
	defer m.running.Done()

	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()

	m.logger.Info("event bus started", slog.Duration("heartbeat", m.heartbeat))
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("event bus stopped")
			m.dropClients()
			return
		case <-ticker.C:
			m.deliver(NewHeartbeatEvent())
		case event, ok := <-m.queue:
			if !ok {
				return
			}
			m.dispatch(event)
		}
	}
}

// Shutdown refuses new events, dispatches what is still queued and closes
// every client. It is safe to call more than once.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closeMu.Lock()
	if m.closed {
		m.closeMu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	m.closeMu.Unlock()

	// Start drains the closed queue before returning; whatever is left after
	// it stopped on its context is dispatched here, never concurrently.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		m.running.Wait()
		for event := range m.queue {
			m.dispatch(event)
		}
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		m.logger.Warn("event bus shutdown timed out, queued events lost")
	}

	m.dropClients()

	stats := m.Stats()
	m.logger.Info("event bus shut down",
		slog.Uint64("published", stats.Published),
		slog.Uint64("dropped", stats.Dropped))
	return nil
}

// Emit queues event without blocking. Events are dropped when the queue is
// full or the bus is shut down.
func (m *Manager) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	m.closeMu.RLock()
	defer m.closeMu.RUnlock()
	if m.closed {
		return
	}

	select {
	case m.queue <- event:
		m.published.Add(1)
	default:
		m.dropped.Add(1)
		m.logger.Error("event queue full", slog.String("event_type", string(event.Type)))
	}
}

// Subscribe registers handler for events addressed to account; an empty
// account receives everything. The returned func unsubscribes and may be
// called repeatedly.
func (m *Manager) Subscribe(account string, handler Handler) func() {
	m.mu.Lock()
	m.nextSub++
	key := m.nextSub
	m.subs[key] = subscription{account: account, handler: handler}
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, key)
			m.mu.Unlock()
		})
	}
}

// Stats reports traffic counters and the current client count.
func (m *Manager) Stats() Stats {
	return Stats{
		Published: m.published.Load(),
		Delivered: m.delivered.Load(),
		Dropped:   m.dropped.Load(),
		Clients:   m.ClientCount(),
	}
}

func (m *Manager) dispatch(event Event) {
	m.mu.RLock()
	handlers := make([]Handler, 0, len(m.subs))
	for _, sub := range m.subs {
		if addressedTo(event, sub.account) {
			handlers = append(handlers, sub.handler)
		}
	}
	m.mu.RUnlock()

	for _, h := range handlers {
		m.call(h, event)
	}
	m.deliver(event)
}

func (m *Manager) call(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("event subscriber panicked",
				slog.String("event_type", string(event.Type)),
				slog.Any("panic", r))
		}
	}()
	h(event)
}

// addressedTo reports whether event reaches a listener for account. An
// empty account on either side matches everyone.
func addressedTo(event Event, account string) bool {
	return event.Account == "" || account == "" || domain.SameAccount(event.Account, account)
}
