package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/subaccounts/notes-server/internal/errors"
	"github.com/subaccounts/notes-server/internal/wallet"
)

func (s *Server) registerWalletRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getWalletConfig",
		Method:      http.MethodGet,
		Path:        "/api/v1/wallet/config",
		Summary:     "Wallet connection config",
		Description: "Builds the wallet connector options for a chosen spend limit",
		Tags:        []string{"Wallet"},
	}, s.handleGetWalletConfig)
}

// === DTOs ===

// WalletConfigInput selects the spend limit.
type WalletConfigInput struct {
	Allowance  string `query:"allowance" doc:"Spend limit allowance in ETH; server default when empty"`
	PeriodDays int    `query:"periodDays" minimum:"0" doc:"Spend limit period in days; server default when 0"`
}

// WalletConfigResponse describes the connection the client should open.
type WalletConfigResponse struct {
	Allowance         string                    `json:"allowance" doc:"Allowance for display, e.g. 0.01 ETH"`
	AllowanceWei      string                    `json:"allowanceWei" doc:"Allowance in wei"`
	PeriodSeconds     int64                     `json:"periodSeconds" doc:"Spend limit period in seconds"`
	ChainIDs          []uint64                  `json:"chainIds" doc:"Chains the connector is configured for"`
	SpendLimitOptions []wallet.SpendLimitOption `json:"spendLimitOptions" doc:"Selectable allowances"`
	Connector         wallet.ConnectorOptions   `json:"connector" doc:"Wallet connector options"`
}

// WalletConfigOutput wraps the wallet config for Huma.
type WalletConfigOutput struct {
	Body WalletConfigResponse
}

// === Handlers ===

func (s *Server) handleGetWalletConfig(_ context.Context, input *WalletConfigInput) (*WalletConfigOutput, error) {
	allowance := input.Allowance
	if allowance == "" {
		allowance = s.wallet.DefaultAllowance
	}
	periodDays := input.PeriodDays
	if periodDays == 0 {
		periodDays = s.wallet.DefaultPeriodDays
	}

	conn, err := wallet.NewConnectionConfig(allowance, periodDays)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}
	if s.wallet.AppName != "" {
		conn.AppName = s.wallet.AppName
	}
	if s.wallet.KeysURL != "" {
		conn.KeysURL = s.wallet.KeysURL
	}
	if len(s.wallet.ChainIDs) > 0 {
		conn.ChainIDs = s.wallet.ChainIDs
	}

	return &WalletConfigOutput{Body: WalletConfigResponse{
		Allowance:         conn.FormatAllowance(),
		AllowanceWei:      conn.Allowance.String(),
		PeriodSeconds:     conn.PeriodSeconds(),
		ChainIDs:          conn.ChainIDs,
		SpendLimitOptions: wallet.SpendLimitOptions(),
		Connector:         conn.ConnectorOptions(),
	}}, nil
}
