// Package di provides dependency injection configuration for the notes server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/subaccounts/notes-server/internal/config"
	"github.com/subaccounts/notes-server/internal/di/providers"
	"github.com/subaccounts/notes-server/internal/ledger"
	"github.com/subaccounts/notes-server/internal/logger"
	"github.com/subaccounts/notes-server/internal/notes"
	"github.com/subaccounts/notes-server/internal/service"
)

// NewContainer registers every provider. Nothing is built until Bootstrap.
func NewContainer() *do.RootScope {
	injector := do.New()

	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage and events
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideNotesRepository)
	do.Provide(injector, providers.ProvideLedger)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Wallet and inference
	do.Provide(injector, providers.ProvideWalletProvider)
	do.Provide(injector, providers.ProvideInferenceClient)

	// Services
	do.Provide(injector, providers.ProvideWalletService)
	do.Provide(injector, providers.ProvideChatService)
	do.Provide(injector, providers.ProvideSearchService)

	// Surfaces
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideMDNS)

	return injector
}

// Bootstrap builds every service eagerly so configuration and connection
// errors surface at startup rather than on the first request.
func Bootstrap(injector *do.RootScope) error {
	steps := []func(do.Injector) error{
		build[*config.Config],
		build[*logger.Logger],
		build[*providers.SSEManagerHandle],
		build[*providers.StoreHandle],
		build[*notes.Repository],
		build[*ledger.Ledger],
		build[*providers.SearchIndexHandle],
		build[*providers.WalletProviderHandle],
		build[*providers.InferenceClientHandle],
		build[*service.WalletService],
		build[*service.ChatService],
		build[*service.SearchService],
		build[*providers.HTTPServerHandle],
		build[*providers.MDNSHandle],
	}
	for _, step := range steps {
		if err := step(injector); err != nil {
			return err
		}
	}
	return nil
}

func build[T any](i do.Injector) error {
	_, err := do.Invoke[T](i)
	return err
}
