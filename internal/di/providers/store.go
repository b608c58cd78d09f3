package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/subaccounts/notes-server/internal/config"
	"github.com/subaccounts/notes-server/internal/logger"
	"github.com/subaccounts/notes-server/internal/sse"
	"github.com/subaccounts/notes-server/internal/store"
)

const (
	shutdownTimeout = 30 * time.Second // per handle
	dialTimeout     = 10 * time.Second // external endpoints at startup
)

// SSEManagerHandle is the running notification bus.
type SSEManagerHandle struct {
	*sse.Manager
	stop context.CancelFunc
}

// Shutdown drains queued events, then stops the dispatch loop.
func (h *SSEManagerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Manager.Shutdown(ctx)
	h.stop()
	return err
}

// ProvideSSEManager starts the notification bus.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	bus := sse.NewManager(log.Component("sse"))
	ctx, stop := context.WithCancel(context.Background())
	go bus.Start(ctx)

	return &SSEManagerHandle{Manager: bus, stop: stop}, nil
}

// StoreHandle is the open key-value store.
type StoreHandle struct {
	*store.Store
}

// Shutdown closes the store.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the store on disk, or in memory when configured.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeLog := log.Component("store")

	if cfg.Storage.InMemory {
		log.Warn("in-memory store: notes and ledgers are lost on restart")
		db, err := store.NewInMemory(storeLog)
		if err != nil {
			return nil, err
		}
		return &StoreHandle{Store: db}, nil
	}

	db, err := store.New(cfg.Storage.DataPath, storeLog)
	if err != nil {
		return nil, err
	}
	return &StoreHandle{Store: db}, nil
}
