package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// AccountHeader carries the connected Sub Account address.
const AccountHeader = "X-Account"

// reconnectDelay is sent as the SSE retry hint.
const reconnectDelay = 3 * time.Second

// HTTPHandler streams bus events at GET /api/v1/events.
type HTTPHandler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler creates the event stream endpoint.
func NewHandler(manager *Manager, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{manager: manager, logger: logger}
}

// ServeHTTP streams events for the account in the X-Account header, or in
// the account query parameter for EventSource clients that cannot set
// headers. Heartbeats come from the manager.
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Context().Err() != nil {
		return
	}

	account := r.Header.Get(AccountHeader)
	if account == "" {
		account = r.URL.Query().Get("account")
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.logger.Error("event stream unsupported", slog.String("error", err.Error()))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	client, err := h.manager.Connect(account)
	if err != nil {
		h.logger.Error("event stream registration failed", slog.String("error", err.Error()))
		http.Error(w, "Failed to establish connection", http.StatusInternalServerError)
		return
	}
	defer h.manager.Disconnect(client.ID)

	log := h.logger.With(slog.String("client_id", client.ID))
	s := &stream{w: w, rc: rc}

	if _, err := fmt.Fprintf(w, "retry: %d\n", reconnectDelay.Milliseconds()); err != nil {
		return
	}
	if err := s.send("connected", map[string]string{"clientId": client.ID, "account": account}); err != nil {
		log.Warn("event stream greeting failed", slog.String("error", err.Error()))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			log.Debug("event stream client went away")
			return
		case <-client.Done():
			return
		case event, ok := <-client.Events():
			if !ok {
				return
			}
			if err := s.send(string(event.Type), event); err != nil {
				log.Info("event stream write failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

// stream numbers frames so clients can report Last-Event-ID.
type stream struct {
	w   io.Writer
	rc  *http.ResponseController
	seq uint64
}

func (s *stream) send(name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", name, err)
	}
	s.seq++
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.seq, name, payload); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil {
		return err
	}
	// Not every ResponseWriter supports deadlines.
	_ = s.rc.SetWriteDeadline(time.Now().Add(writeDeadlineStep))
	return nil
}
