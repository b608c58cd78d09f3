package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/subaccounts/notes-server/internal/inference"
	"github.com/subaccounts/notes-server/internal/service"
)

func (s *Server) registerChatRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "askChat",
		Method:      http.MethodPost,
		Path:        "/api/v1/chat",
		Summary:     "Ask the assistant",
		Description: "Answers a question about Sub Accounts. Falls back to the default model once if the chosen one fails.",
		Tags:        []string{"Chat"},
		Middlewares: huma.Middlewares{s.rateLimited},
	}, s.handleAskChat)

	huma.Register(s.api, huma.Operation{
		OperationID: "chatIntro",
		Method:      http.MethodGet,
		Path:        "/api/v1/chat",
		Summary:     "Assistant introduction",
		Description: "Returns the assistant's opening explanation of Sub Accounts",
		Tags:        []string{"Chat"},
		Middlewares: huma.Middlewares{s.rateLimited},
	}, s.handleChatIntro)

	huma.Register(s.api, huma.Operation{
		OperationID: "listChatModels",
		Method:      http.MethodGet,
		Path:        "/api/v1/chat/models",
		Summary:     "List models",
		Description: "Returns the selectable assistant models",
		Tags:        []string{"Chat"},
	}, s.handleListChatModels)
}

// === DTOs ===

// ChatRequest is the request body for asking the assistant.
type ChatRequest struct {
	Prompt string `json:"prompt" validate:"notblank,max=4000" doc:"Question for the assistant"`
	Model  string `json:"model,omitempty" doc:"Model ID; unknown models use the default"`
}

// ChatInput wraps the chat request for Huma.
type ChatInput struct {
	Body ChatRequest
}

// ChatOutput wraps the assistant reply for Huma.
type ChatOutput struct {
	Body *service.ChatReply
}

// ModelsResponse lists selectable models.
type ModelsResponse struct {
	Models  []string `json:"models" doc:"Model IDs"`
	Default string   `json:"default" doc:"Model used when none or an unknown one is given"`
}

// ModelsOutput wraps the model listing for Huma.
type ModelsOutput struct {
	Body ModelsResponse
}

// === Handlers ===

func (s *Server) handleAskChat(ctx context.Context, input *ChatInput) (*ChatOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	reply, err := s.services.Chat.Ask(ctx, input.Body.Prompt, input.Body.Model)
	if err != nil {
		return nil, err
	}
	return &ChatOutput{Body: reply}, nil
}

func (s *Server) handleChatIntro(ctx context.Context, _ *struct{}) (*ChatOutput, error) {
	reply, err := s.services.Chat.Intro(ctx)
	if err != nil {
		return nil, err
	}
	return &ChatOutput{Body: reply}, nil
}

func (s *Server) handleListChatModels(_ context.Context, _ *struct{}) (*ModelsOutput, error) {
	return &ModelsOutput{Body: ModelsResponse{
		Models:  s.services.Chat.Models(),
		Default: inference.DefaultModel,
	}}, nil
}
