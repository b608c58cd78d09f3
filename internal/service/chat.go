package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	domainerrors "github.com/subaccounts/notes-server/internal/errors"
	"github.com/subaccounts/notes-server/internal/inference"
)

// Completer produces a completion for prompt using model.
type Completer interface {
	Complete(ctx context.Context, prompt, model string) (string, error)
}

// ChatReply is one assistant answer.
type ChatReply struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Model     string    `json:"model"`
	Fallback  bool      `json:"fallback,omitempty"`
}

// ChatService answers questions about Sub Accounts through the inference API.
type ChatService struct {
	completer Completer
	logger    *slog.Logger
}

// NewChatService creates a new chat service. completer may be nil when no
// inference API is configured.
func NewChatService(completer Completer, logger *slog.Logger) *ChatService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ChatService{completer: completer, logger: logger}
}

// Ask sends prompt to model, substituting the default model for an unknown
// one. When the call fails it is retried once with the default model.
func (s *ChatService) Ask(ctx context.Context, prompt, model string) (*ChatReply, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, domainerrors.Validation("prompt is required")
	}
	if s.completer == nil {
		return nil, domainerrors.NotConfigured("chat assistant is not configured")
	}

	selected := inference.ResolveModel(model)
	enhanced := inference.EnhancePrompt(prompt)

	message, err := s.completer.Complete(ctx, enhanced, selected)
	if err == nil {
		return newReply(message, selected, false), nil
	}
	if errors.Is(err, inference.ErrNoAPIKey) {
		return nil, domainerrors.NotConfigured("chat assistant is not configured").WithCause(err)
	}

	s.logger.Warn("completion failed, falling back to default model",
		slog.String("model", selected),
		slog.String("fallback_model", inference.DefaultModel),
		slog.String("error", err.Error()))

	message, err = s.completer.Complete(ctx, enhanced, inference.DefaultModel)
	if err != nil {
		s.logger.Error("fallback completion failed",
			slog.String("model", inference.DefaultModel),
			slog.String("error", err.Error()))
		return nil, domainerrors.Provider(err, "Error processing your request")
	}
	return newReply(message, inference.DefaultModel, true), nil
}

// Intro asks the default model for the opening explainer shown when the
// chat is first opened.
func (s *ChatService) Intro(ctx context.Context) (*ChatReply, error) {
	if s.completer == nil {
		return nil, domainerrors.NotConfigured("chat assistant is not configured")
	}

	message, err := s.completer.Complete(ctx, inference.IntroPrompt, inference.DefaultModel)
	if err != nil {
		if errors.Is(err, inference.ErrNoAPIKey) {
			return nil, domainerrors.NotConfigured("chat assistant is not configured").WithCause(err)
		}
		return nil, domainerrors.Provider(err, "Error processing your request")
	}
	return newReply(message, inference.DefaultModel, false), nil
}

// Configured reports whether requests can reach the inference API.
func (s *ChatService) Configured() bool {
	if s.completer == nil {
		return false
	}
	if c, ok := s.completer.(interface{ Configured() bool }); ok {
		return c.Configured()
	}
	return true
}

// Models lists the selectable models.
func (s *ChatService) Models() []string {
	return inference.Models()
}

func newReply(message, model string, fallback bool) *ChatReply {
	return &ChatReply{
		ID:        uuid.NewString(),
		Message:   message,
		Model:     model,
		Fallback:  fallback,
		CreatedAt: time.Now(),
	}
}
