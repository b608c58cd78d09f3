package inference

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)

	client := New(Config{APIKey: "test-key", BaseURL: server.URL, RPS: 100, Burst: 10},
		slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
	// Override HTTP client to use test server
	client.http = server.Client()

	return client, server
}

func TestClient_Complete(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		statusCode int
		want       string
		wantErr    error
	}{
		{
			name:       "successful completion",
			response:   `{"choices":[{"message":{"role":"assistant","content":"Sub Accounts skip popups."}}]}`,
			statusCode: http.StatusOK,
			want:       "Sub Accounts skip popups.",
		},
		{
			name:       "no choices",
			response:   `{"choices":[]}`,
			statusCode: http.StatusOK,
			wantErr:    ErrEmptyReply,
		},
		{
			name:       "unauthorized",
			statusCode: http.StatusUnauthorized,
			wantErr:    ErrUnauthorized,
		},
		{
			name:       "rate limited",
			statusCode: http.StatusTooManyRequests,
			wantErr:    ErrRateLimited,
		},
		{
			name:       "unknown model",
			response:   `{"error":{"message":"model not found"}}`,
			statusCode: http.StatusNotFound,
			wantErr:    ErrBadRequest,
		},
		{
			name:       "server error",
			statusCode: http.StatusBadGateway,
			wantErr:    ErrServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				if tt.response != "" {
					w.Write([]byte(tt.response))
				}
			}

			client, server := newTestClient(t, handler)
			defer server.Close()
			defer client.Close()

			got, err := client.Complete(context.Background(), "hi", DefaultModel)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Complete() error = %v, want %v", err, tt.wantErr)
				}
				var ierr *Error
				if !errors.As(err, &ierr) || ierr.Model != DefaultModel {
					t.Errorf("Complete() error should carry model context, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Complete() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Complete() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_CompleteRequestShape(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq chatRequest

	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	})
	defer server.Close()
	defer client.Close()

	if _, err := client.Complete(context.Background(), "What is a spend limit?", "llama-3.1-8b-instant"); err != nil {
		t.Fatalf("Complete() unexpected error: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotReq.Model != "llama-3.1-8b-instant" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" || gotReq.Messages[0].Content != "What is a spend limit?" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestClient_CompleteWithoutKey(t *testing.T) {
	client := New(Config{}, nil)
	defer client.Close()

	_, err := client.Complete(context.Background(), "hi", DefaultModel)
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Complete() error = %v, want %v", err, ErrNoAPIKey)
	}
}

func TestClient_CompleteContextCanceled(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	defer server.Close()
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := client.Complete(ctx, "hi", DefaultModel); err == nil {
		t.Error("Complete() should fail when context canceled")
	}
}

func TestClient_CompleteRejectsOversizedResponse(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices":[{"message":{"content":"`))
		w.Write([]byte(strings.Repeat("a", maxResponseBody)))
		w.Write([]byte(`"}}]}`))
	})
	defer server.Close()
	defer client.Close()

	_, err := client.Complete(context.Background(), "hi", DefaultModel)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Complete() error = %v, want %v", err, ErrTooLarge)
	}
}

func TestResolveModel(t *testing.T) {
	if got := ResolveModel("gemma-7b-it"); got != "gemma-7b-it" {
		t.Errorf("ResolveModel(known) = %q", got)
	}
	if got := ResolveModel("gpt-17"); got != DefaultModel {
		t.Errorf("ResolveModel(unknown) = %q", got)
	}
	if got := ResolveModel(""); got != DefaultModel {
		t.Errorf("ResolveModel(empty) = %q", got)
	}
}

func TestEnhancePrompt(t *testing.T) {
	got := EnhancePrompt("  what is this?  ")

	if !strings.HasSuffix(got, "Now, respond to this user query: what is this?") {
		t.Errorf("EnhancePrompt() suffix wrong: %q", got)
	}
	if !strings.Contains(got, "popup-less transactions") {
		t.Error("EnhancePrompt() should include the Sub Accounts context")
	}
}
