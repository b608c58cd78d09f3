package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/subaccounts/notes-server/internal/config"
	"github.com/subaccounts/notes-server/internal/inference"
	"github.com/subaccounts/notes-server/internal/ledger"
	"github.com/subaccounts/notes-server/internal/logger"
	"github.com/subaccounts/notes-server/internal/notes"
	"github.com/subaccounts/notes-server/internal/service"
	"github.com/subaccounts/notes-server/internal/wallet"
)

// ProvideNotesRepository provides the note repository.
func ProvideNotesRepository(i do.Injector) (*notes.Repository, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return notes.NewRepository(storeHandle.Store, log.Component("notes"),
		notes.WithEmitter(sseHandle.Manager),
		notes.WithSampleSeeding(cfg.Notes.SeedSamples),
	), nil
}

// ProvideLedger provides the per-account transaction ledger.
func ProvideLedger(i do.Injector) (*ledger.Ledger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return ledger.New(storeHandle.Store, log.Component("ledger"),
		ledger.WithCap(cfg.Ledger.Cap),
		ledger.WithEmitter(sseHandle.Manager),
	), nil
}

// WalletProviderHandle wraps the wallet provider with shutdown capability.
type WalletProviderHandle struct {
	wallet.Provider
	rpc *wallet.RPCProvider
}

// Shutdown implements do.Shutdownable.
func (h *WalletProviderHandle) Shutdown() error {
	if h.rpc != nil {
		h.rpc.Close()
	}
	return nil
}

// ProvideWalletProvider provides the wallet provider. Without an RPC endpoint
// every wallet action fails with NOT_CONFIGURED.
func ProvideWalletProvider(i do.Injector) (*WalletProviderHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Wallet.RPCURL == "" {
		log.Warn("Wallet RPC endpoint not set, wallet actions are disabled")
		return &WalletProviderHandle{Provider: wallet.Unconfigured{}}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	p, err := wallet.DialRPC(ctx, cfg.Wallet.RPCURL, log.Component("wallet"))
	if err != nil {
		return nil, err
	}

	log.Info("Wallet provider connected", "url", cfg.Wallet.RPCURL)
	return &WalletProviderHandle{Provider: p, rpc: p}, nil
}

// InferenceClientHandle wraps the inference client with shutdown capability.
type InferenceClientHandle struct {
	*inference.Client
}

// Shutdown implements do.Shutdownable.
func (h *InferenceClientHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideInferenceClient provides the chat completions client.
func ProvideInferenceClient(i do.Injector) (*InferenceClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := inference.New(inference.Config{
		APIKey:  cfg.Inference.APIKey,
		BaseURL: cfg.Inference.BaseURL,
		Timeout: cfg.Inference.Timeout,
		RPS:     cfg.Inference.RPS,
		Burst:   cfg.Inference.Burst,
	}, log.Component("inference"))

	if !client.Configured() {
		log.Warn("Inference API key not set, chat is disabled")
	}

	return &InferenceClientHandle{Client: client}, nil
}

// ProvideWalletService provides the wallet action service.
func ProvideWalletService(i do.Injector) (*service.WalletService, error) {
	repo := do.MustInvoke[*notes.Repository](i)
	l := do.MustInvoke[*ledger.Ledger](i)
	providerHandle := do.MustInvoke[*WalletProviderHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewWalletService(repo, l, providerHandle.Provider, log.Component("wallet")), nil
}

// ProvideChatService provides the chat assistant service.
func ProvideChatService(i do.Injector) (*service.ChatService, error) {
	clientHandle := do.MustInvoke[*InferenceClientHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewChatService(clientHandle.Client, log.Component("chat")), nil
}
