package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/subaccounts/notes-server/internal/errors"
)

// Provider sends transactions and signs messages for an account. Failures
// are reported as provider errors.
type Provider interface {
	SendTransaction(ctx context.Context, from, to string, value *big.Int) (string, error)
	SignMessage(ctx context.Context, from, message string) (string, error)
}

// TransactionArgs is the eth_sendTransaction parameter object.
type TransactionArgs struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *hexutil.Big   `json:"value"`
}

// RPCProvider talks JSON-RPC to a wallet endpoint that holds the Sub
// Account's signer.
type RPCProvider struct {
	client *rpc.Client
	logger *slog.Logger
}

// DialRPC connects to the wallet endpoint at url.
func DialRPC(ctx context.Context, url string, logger *slog.Logger) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial wallet rpc: %w", err)
	}
	return NewRPCProvider(client, logger), nil
}

// NewRPCProvider wraps an existing client.
func NewRPCProvider(client *rpc.Client, logger *slog.Logger) *RPCProvider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RPCProvider{client: client, logger: logger}
}

// Close releases the RPC connection.
func (p *RPCProvider) Close() {
	p.client.Close()
}

// SendTransaction submits a value transfer and returns its hash.
func (p *RPCProvider) SendTransaction(ctx context.Context, from, to string, value *big.Int) (string, error) {
	if !common.IsHexAddress(from) {
		return "", errors.Validationf("invalid sender address %q", from)
	}
	if !common.IsHexAddress(to) {
		return "", errors.Validationf("invalid recipient address %q", to)
	}
	if value == nil || value.Sign() < 0 {
		return "", errors.Validation("value must be a non-negative amount")
	}

	args := TransactionArgs{
		From:  common.HexToAddress(from),
		To:    common.HexToAddress(to),
		Value: (*hexutil.Big)(value),
	}

	var hash common.Hash
	if err := p.client.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		p.logger.Warn("eth_sendTransaction failed",
			slog.String("from", from),
			slog.String("to", to),
			slog.String("error", err.Error()))
		return "", errors.Provider(err, "transaction failed")
	}
	return hash.Hex(), nil
}

// SignMessage signs message with personal_sign and returns the signature.
func (p *RPCProvider) SignMessage(ctx context.Context, from, message string) (string, error) {
	if !common.IsHexAddress(from) {
		return "", errors.Validationf("invalid signer address %q", from)
	}

	var signature hexutil.Bytes
	err := p.client.CallContext(ctx, &signature, "personal_sign",
		hexutil.Encode([]byte(message)), common.HexToAddress(from))
	if err != nil {
		p.logger.Warn("personal_sign failed",
			slog.String("from", from),
			slog.String("error", err.Error()))
		return "", errors.Provider(err, "signing failed")
	}
	return signature.String(), nil
}

// Unconfigured is used when no wallet endpoint is set.
type Unconfigured struct{}

// SendTransaction implements Provider.
func (Unconfigured) SendTransaction(context.Context, string, string, *big.Int) (string, error) {
	return "", errors.NotConfigured("wallet provider is not configured")
}

// SignMessage implements Provider.
func (Unconfigured) SignMessage(context.Context, string, string) (string, error) {
	return "", errors.NotConfigured("wallet provider is not configured")
}
