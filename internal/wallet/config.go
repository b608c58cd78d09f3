// Package wallet holds the wallet connection settings and the provider used to
// send transactions and sign messages on behalf of a Sub Account.
package wallet

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Chain identifiers the connector is configured for.
const (
	ChainBaseSepolia uint64 = 84532
	ChainBase        uint64 = 8453
)

const (
	// DefaultAllowance is the preselected spend limit.
	DefaultAllowance = "0.01"
	// DefaultPeriodDays is the default spend limit period.
	DefaultPeriodDays = 1
	// DefaultAppName is shown in the wallet connect prompt.
	DefaultAppName = "My Sub Account Demo"
	// DefaultKeysURL is the wallet keys endpoint.
	DefaultKeysURL = "https://keys-dev.coinbase.com/connect"
)

// NativeToken is the sentinel token address for the chain's native currency.
var NativeToken = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// SpendLimitOption is one choice offered by the spend limit selector.
type SpendLimitOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// SpendLimitOptions returns the selectable allowances, largest first.
func SpendLimitOptions() []SpendLimitOption {
	values := []string{"0.1", "0.01", "0.001", "0.0001"}
	out := make([]SpendLimitOption, len(values))
	for i, v := range values {
		out[i] = SpendLimitOption{Value: v, Label: v + " ETH"}
	}
	return out
}

// ConnectionConfig is built when the user decides to connect and is consumed
// once when the wallet connector is constructed.
type ConnectionConfig struct {
	Allowance *big.Int // wei
	Period    time.Duration
	ChainIDs  []uint64
	AppName   string
	KeysURL   string
}

// NewConnectionConfig builds a config from a decimal ETH allowance and a
// period in days. An empty allowance or a non-positive period selects the
// defaults.
func NewConnectionConfig(allowanceETH string, periodDays int) (ConnectionConfig, error) {
	if allowanceETH == "" {
		allowanceETH = DefaultAllowance
	}
	if periodDays <= 0 {
		periodDays = DefaultPeriodDays
	}

	wei, err := ParseEther(allowanceETH)
	if err != nil {
		return ConnectionConfig{}, fmt.Errorf("spend limit allowance: %w", err)
	}
	if wei.Sign() == 0 {
		return ConnectionConfig{}, fmt.Errorf("spend limit allowance must be positive")
	}

	return ConnectionConfig{
		Allowance: wei,
		Period:    time.Duration(periodDays) * 24 * time.Hour,
		ChainIDs:  []uint64{ChainBaseSepolia, ChainBase},
		AppName:   DefaultAppName,
		KeysURL:   DefaultKeysURL,
	}, nil
}

// FormatAllowance renders the allowance in ETH, e.g. "0.01 ETH".
func (c ConnectionConfig) FormatAllowance() string {
	return FormatEther(c.Allowance) + " ETH"
}

// PeriodSeconds returns the spend limit period in seconds.
func (c ConnectionConfig) PeriodSeconds() int64 {
	return int64(c.Period / time.Second)
}

// SpendLimit is one per-chain spend permission in connector options.
type SpendLimit struct {
	Token     string `json:"token"`
	Allowance string `json:"allowance"` // hex wei
	Period    int64  `json:"period"`    // seconds
}

// ConnectorOptions is the wallet connector configuration handed to the client.
type ConnectorOptions struct {
	AppName     string              `json:"appName"`
	Preference  ConnectorPreference `json:"preference"`
	SubAccounts SubAccountOptions   `json:"subAccounts"`
}

// ConnectorPreference selects the smart wallet flow.
type ConnectorPreference struct {
	KeysURL string `json:"keysUrl"`
	Options string `json:"options"`
}

// SubAccountOptions configures automatic Sub Account creation.
type SubAccountOptions struct {
	DefaultSpendLimits    map[string][]SpendLimit `json:"defaultSpendLimits"`
	EnableAutoSubAccounts bool                    `json:"enableAutoSubAccounts"`
}

// ConnectorOptions renders c in the shape the wallet connector expects.
func (c ConnectionConfig) ConnectorOptions() ConnectorOptions {
	limits := make(map[string][]SpendLimit, len(c.ChainIDs))
	for _, chainID := range c.ChainIDs {
		limits[fmt.Sprint(chainID)] = []SpendLimit{{
			Token:     NativeToken.Hex(),
			Allowance: hexutil.EncodeBig(c.Allowance),
			Period:    c.PeriodSeconds(),
		}}
	}

	return ConnectorOptions{
		AppName: c.AppName,
		Preference: ConnectorPreference{
			KeysURL: c.KeysURL,
			Options: "smartWalletOnly",
		},
		SubAccounts: SubAccountOptions{
			EnableAutoSubAccounts: true,
			DefaultSpendLimits:    limits,
		},
	}
}
