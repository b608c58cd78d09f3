package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/subaccounts/notes-server/internal/domain"
)

func (s *Server) registerTransactionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTransactions",
		Method:      http.MethodGet,
		Path:        "/api/v1/transactions",
		Summary:     "List transactions",
		Description: "Returns the caller's recent transactions, newest first",
		Tags:        []string{"Transactions"},
	}, s.handleListTransactions)

	huma.Register(s.api, huma.Operation{
		OperationID:   "clearTransactions",
		Method:        http.MethodDelete,
		Path:          "/api/v1/transactions",
		Summary:       "Clear transactions",
		Description:   "Removes the caller's transaction history",
		Tags:          []string{"Transactions"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleClearTransactions)

	huma.Register(s.api, huma.Operation{
		OperationID:   "sendTransaction",
		Method:        http.MethodPost,
		Path:          "/api/v1/transactions/send",
		Summary:       "Send ETH",
		Description:   "Sends ETH from the caller's Sub Account and records the transaction",
		Tags:          []string{"Transactions", "Wallet"},
		DefaultStatus: http.StatusCreated,
	}, s.handleSendTransaction)

	huma.Register(s.api, huma.Operation{
		OperationID:   "signMessage",
		Method:        http.MethodPost,
		Path:          "/api/v1/transactions/sign",
		Summary:       "Sign message",
		Description:   "Signs a message with the caller's Sub Account and records the signature",
		Tags:          []string{"Transactions", "Wallet"},
		DefaultStatus: http.StatusCreated,
	}, s.handleSignMessage)
}

// === DTOs ===

// TransactionsResponse contains a ledger listing.
type TransactionsResponse struct {
	Transactions []domain.TransactionRecord `json:"transactions" doc:"Transactions, newest first"`
	Cap          int                        `json:"cap" doc:"Maximum number of records kept"`
}

// TransactionsOutput wraps the ledger listing for Huma.
type TransactionsOutput struct {
	Body TransactionsResponse
}

// TransactionOutput wraps a single record for Huma.
type TransactionOutput struct {
	Body domain.TransactionRecord
}

// SendRequest is the request body for sending ETH.
type SendRequest struct {
	To     string `json:"to" validate:"required,eth_addr" doc:"Recipient address"`
	Amount string `json:"amount" validate:"required,eth_amount" doc:"Amount in ETH, e.g. 0.0001"`
}

// SendInput wraps the send request for Huma.
type SendInput struct {
	Account string `header:"X-Account" doc:"Connected Sub Account address"`
	Body    SendRequest
}

// SignRequest is the request body for signing a message.
type SignRequest struct {
	Message string `json:"message" validate:"notblank,max=4096" doc:"Message to sign"`
}

// SignInput wraps the sign request for Huma.
type SignInput struct {
	Account string `header:"X-Account" doc:"Connected Sub Account address"`
	Body    SignRequest
}

// === Handlers ===

func (s *Server) handleListTransactions(ctx context.Context, input *AccountInput) (*TransactionsOutput, error) {
	records, err := s.services.Ledger.List(ctx, account(input.Account))
	if err != nil {
		return nil, err
	}
	return &TransactionsOutput{Body: TransactionsResponse{
		Transactions: records,
		Cap:          s.services.Ledger.Cap(),
	}}, nil
}

func (s *Server) handleClearTransactions(ctx context.Context, input *AccountInput) (*struct{}, error) {
	if err := s.services.Ledger.Clear(ctx, account(input.Account)); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleSendTransaction(ctx context.Context, input *SendInput) (*TransactionOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	rec, err := s.services.Wallet.Send(ctx, account(input.Account), input.Body.To, input.Body.Amount)
	if err != nil {
		return nil, err
	}
	return &TransactionOutput{Body: rec}, nil
}

func (s *Server) handleSignMessage(ctx context.Context, input *SignInput) (*TransactionOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	rec, err := s.services.Wallet.Sign(ctx, account(input.Account), input.Body.Message)
	if err != nil {
		return nil, err
	}
	return &TransactionOutput{Body: rec}, nil
}
