package sse

import (
	"log/slog"
	"sync"
	"time"

	"github.com/subaccounts/notes-server/internal/id"
)

// Client is one connected event stream.
type Client struct {
	ID          string
	Account     string // empty receives every event
	ConnectedAt time.Time

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// Events yields the events addressed to the client. It is closed when the
// client is disconnected.
func (c *Client) Events() <-chan Event { return c.events }

// Done is closed when the manager drops the client.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		close(c.events)
	})
}

// Connect registers a stream for account.
func (m *Manager) Connect(account string) (*Client, error) {
	clientID, err := id.Generate("sse")
	if err != nil {
		return nil, err
	}
	c := &Client{
		ID:          clientID,
		Account:     account,
		ConnectedAt: time.Now(),
		events:      make(chan Event, clientQueueSize),
		done:        make(chan struct{}),
	}

	m.mu.Lock()
	m.clients[c.ID] = c
	n := len(m.clients)
	m.mu.Unlock()

	m.logger.Info("event stream opened",
		slog.String("client_id", c.ID),
		slog.String("account", account),
		slog.Int("clients", n))
	return c, nil
}

// Disconnect removes a client. Unknown IDs are ignored.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	c, ok := m.clients[clientID]
	delete(m.clients, clientID)
	n := len(m.clients)
	m.mu.Unlock()
	if !ok {
		return
	}

	c.close()
	m.logger.Info("event stream closed",
		slog.String("client_id", clientID),
		slog.Duration("duration", time.Since(c.ConnectedAt)),
		slog.Int("clients", n))
}

// ClientCount returns the number of open streams.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// deliver hands event to every matching client. Slow clients lose the
// event rather than stall the bus.
func (m *Manager) deliver(event Event) {
	var sent, skipped int

	m.mu.RLock()
	for _, c := range m.clients {
		if !addressedTo(event, c.Account) {
			continue
		}
		select {
		case c.events <- event:
			sent++
		default:
			skipped++
			m.logger.Warn("client queue full",
				slog.String("client_id", c.ID),
				slog.String("event_type", string(event.Type)))
		}
	}
	m.mu.RUnlock()

	if event.Type == EventHeartbeat {
		return
	}
	m.delivered.Add(uint64(sent))
	m.dropped.Add(uint64(skipped))
	m.logger.Debug("event dispatched",
		slog.String("event_type", string(event.Type)),
		slog.Int("sent", sent),
		slog.Int("skipped", skipped))
}

func (m *Manager) dropClients() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]*Client)
	m.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
