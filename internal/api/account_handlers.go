package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/subaccounts/notes-server/internal/color"
	"github.com/subaccounts/notes-server/internal/domain"
)

func (s *Server) registerAccountRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getAccount",
		Method:      http.MethodGet,
		Path:        "/api/v1/account",
		Summary:     "Describe the caller",
		Description: "Returns how the connected account is displayed",
		Tags:        []string{"Wallet"},
	}, s.handleGetAccount)
}

// AccountResponse describes the caller's account badge.
type AccountResponse struct {
	Account   string `json:"account" doc:"Normalized account identifier"`
	Display   string `json:"display" doc:"Shortened address, e.g. 0x1234...7890"`
	Anonymous bool   `json:"anonymous" doc:"True when no account header was sent"`
	Color     string `json:"color" doc:"Stable badge color"`
}

// AccountOutput wraps the account badge for Huma.
type AccountOutput struct {
	Body AccountResponse
}

func (s *Server) handleGetAccount(_ context.Context, input *AccountInput) (*AccountOutput, error) {
	acct := account(input.Account)
	return &AccountOutput{Body: AccountResponse{
		Account:   acct,
		Display:   domain.ShortAccount(acct),
		Anonymous: acct == domain.AnonymousAccount,
		Color:     color.ForAccount(acct),
	}}, nil
}
