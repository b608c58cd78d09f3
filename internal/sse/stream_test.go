package sse

import (
	"bufio"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subaccounts/notes-server/internal/domain"
)

func TestHandler_StreamsAccountEvents(t *testing.T) {
	m := newTestManager(t)
	server := httptest.NewServer(NewHandler(m, slog.New(slog.DiscardHandler)))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"?account=0xa", nil)
	require.NoError(t, err)

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	readEvent := func() (string, string) {
		var name, data string
		for lines.Scan() {
			line := lines.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "":
				return name, data
			}
		}
		return name, data
	}

	name, _ := readEvent()
	require.Equal(t, "connected", name)

	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	// Addressed to someone else: filtered out.
	m.Emit(NewLedgerClearedEvent("0xb"))
	m.Emit(NewTransactionCreatedEvent("0xa", domain.TransactionRecord{
		Type: domain.TransactionSend, Hash: "0xdead", Details: "Sent 0.0001 ETH",
	}))

	name, data := readEvent()
	assert.Equal(t, string(EventTransactionCreated), name)
	assert.Contains(t, data, `"hash":"0xdead"`)
	assert.Contains(t, data, `"type":"transaction.created"`)
}

func TestHandler_RejectsNonGet(t *testing.T) {
	m := NewManager(slog.New(slog.DiscardHandler))
	rec := httptest.NewRecorder()

	NewHandler(m, slog.New(slog.DiscardHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStream_NumbersFrames(t *testing.T) {
	rec := httptest.NewRecorder()
	s := &stream{w: rec, rc: http.NewResponseController(rec)}

	require.NoError(t, s.send("note.deleted", map[string]string{"noteId": "n1"}))
	require.NoError(t, s.send("note.deleted", map[string]string{"noteId": "n2"}))

	body := rec.Body.String()
	assert.Contains(t, body, "id: 1\nevent: note.deleted\ndata: {\"noteId\":\"n1\"}\n\n")
	assert.Contains(t, body, "id: 2\nevent: note.deleted\n")
}
