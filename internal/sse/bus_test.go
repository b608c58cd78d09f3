package sse

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subaccounts/notes-server/internal/domain"
)

func newTestManager(t *testing.T, opts ...ManagerOption) *Manager {
	t.Helper()

	m := NewManager(slog.New(slog.DiscardHandler), opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)

	t.Cleanup(func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), time.Second)
		defer stop()
		_ = m.Shutdown(shutdownCtx)
		cancel()
	})
	return m
}

// collector records events delivered to a subscriber.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handle(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) types() []EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]EventType, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Type)
	}
	return out
}

func TestManager_SubscribeReceivesInPublishOrder(t *testing.T) {
	m := newTestManager(t)
	var c collector
	m.Subscribe("", c.handle)

	m.Emit(NewNoteDeletedEvent("note-1"))
	m.Emit(NewLedgerClearedEvent("0xa"))

	require.Eventually(t, func() bool { return len(c.types()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []EventType{EventNoteDeleted, EventLedgerCleared}, c.types())
}

func TestManager_FiltersByAccount(t *testing.T) {
	m := newTestManager(t)
	var mine, other collector
	m.Subscribe("0xAAAA", mine.handle)
	m.Subscribe("0xbbbb", other.handle)

	rec := domain.TransactionRecord{Type: domain.TransactionSend, Hash: "0xdead", Details: "Sent 0.0001 ETH"}
	m.Emit(NewTransactionCreatedEvent("0xaaaa", rec))
	m.Emit(NewNoteDeletedEvent("note-1"))

	require.Eventually(t, func() bool { return len(mine.types()) == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(other.types()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []EventType{EventNoteDeleted}, other.types())

	data, ok := mine.events[0].Data.(TransactionEventData)
	require.True(t, ok)
	assert.Equal(t, "0xdead", data.Hash)
	assert.Equal(t, domain.TransactionSend, data.Type)
}

func TestManager_Unsubscribe(t *testing.T) {
	m := newTestManager(t)
	var c, sentinel collector
	unsubscribe := m.Subscribe("", c.handle)
	m.Subscribe("", sentinel.handle)

	unsubscribe()
	unsubscribe()
	m.Emit(NewNoteDeletedEvent("note-1"))

	require.Eventually(t, func() bool { return len(sentinel.types()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, c.types())
}

func TestManager_PanickingSubscriberDoesNotStopBus(t *testing.T) {
	m := newTestManager(t)
	var c collector
	m.Subscribe("", func(Event) { panic("boom") })
	m.Subscribe("", c.handle)

	m.Emit(NewNoteDeletedEvent("note-1"))
	m.Emit(NewNoteDeletedEvent("note-2"))

	require.Eventually(t, func() bool { return len(c.types()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestManager_EmitNeverBlocksWhenFull(t *testing.T) {
	// Not started: nothing drains the queue.
	m := NewManager(slog.New(slog.DiscardHandler), WithBufferSize(1))

	done := make(chan struct{})
	go func() {
		for range 10 {
			m.Emit(NewNoteDeletedEvent("note"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full queue")
	}
}

func TestManager_EmitAfterShutdownIsDropped(t *testing.T) {
	m := NewManager(slog.New(slog.DiscardHandler))
	require.NoError(t, m.Shutdown(context.Background()))

	assert.NotPanics(t, func() { m.Emit(NewNoteDeletedEvent("note-1")) })
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestManager_ConnectAndDisconnect(t *testing.T) {
	m := newTestManager(t)

	client, err := m.Connect("0xa")
	require.NoError(t, err)
	assert.Equal(t, 1, m.ClientCount())

	m.Emit(NewLedgerClearedEvent("0xA"))
	select {
	case evt := <-client.Events():
		assert.Equal(t, EventLedgerCleared, evt.Type)
	case <-time.After(time.Second):
		t.Fatal("client did not receive event")
	}

	m.Disconnect(client.ID)
	m.Disconnect(client.ID)
	assert.Equal(t, 0, m.ClientCount())
}

func TestNewNoteEvent_PrivateNotesTargetOwner(t *testing.T) {
	private := NewNoteEvent(EventNoteCreated, domain.Note{ID: "n1", Owner: "0xa", Unlocked: true})
	public := NewNoteEvent(EventNoteCreated, domain.Note{ID: "n2", Owner: "0xa", IsPublic: true})

	assert.Equal(t, "0xa", private.Account)
	assert.Empty(t, public.Account)
	assert.False(t, private.Data.(NoteEventData).Note.Unlocked)
}

func TestManager_Stats(t *testing.T) {
	m := newTestManager(t)
	client, err := m.Connect("")
	require.NoError(t, err)

	m.Emit(NewNoteDeletedEvent("note-1"))
	m.Emit(NewNoteDeletedEvent("note-2"))

	require.Eventually(t, func() bool { return m.Stats().Delivered == 2 }, time.Second, 5*time.Millisecond)
	stats := m.Stats()
	assert.Equal(t, uint64(2), stats.Published)
	assert.Equal(t, uint64(0), stats.Dropped)
	assert.Equal(t, 1, stats.Clients)
	assert.Len(t, client.Events(), 2)
}

func TestManager_ShutdownClosesClients(t *testing.T) {
	m := NewManager(slog.New(slog.DiscardHandler))
	client, err := m.Connect("0xa")
	require.NoError(t, err)

	require.NoError(t, m.Shutdown(context.Background()))

	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Fatal("client not closed on shutdown")
	}
	assert.Zero(t, m.ClientCount())
	assert.NotPanics(t, func() { m.Disconnect(client.ID) })
}

func TestNewManager_NilLoggerPanics(t *testing.T) {
	assert.Panics(t, func() { NewManager(nil) })
}

func TestManager_ShutdownDispatchesQueuedEventsSerially(t *testing.T) {
	m := NewManager(slog.New(slog.DiscardHandler))

	var inFlight, overlaps, seen atomic.Int32
	m.Subscribe("", func(Event) {
		if inFlight.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(time.Millisecond)
		seen.Add(1)
		inFlight.Add(-1)
	})

	const events = 50
	for i := range events {
		m.Emit(NewNoteDeletedEvent(fmt.Sprintf("note-%d", i)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan struct{})
	go func() {
		close(started)
		m.Start(ctx)
	}()
	<-started

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	require.NoError(t, m.Shutdown(shutdownCtx))

	assert.Equal(t, int32(events), seen.Load())
	assert.Zero(t, overlaps.Load())
}

func TestManager_StartAfterShutdownReturns(t *testing.T) {
	m := NewManager(slog.New(slog.DiscardHandler))
	require.NoError(t, m.Shutdown(context.Background()))

	done := make(chan struct{})
	go func() {
		m.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start kept running after Shutdown")
	}
}
