package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/subaccounts/notes-server/internal/api"
	"github.com/subaccounts/notes-server/internal/config"
	"github.com/subaccounts/notes-server/internal/ledger"
	"github.com/subaccounts/notes-server/internal/logger"
	"github.com/subaccounts/notes-server/internal/notes"
	"github.com/subaccounts/notes-server/internal/service"
)

// HTTPServerHandle is the listening HTTP server.
type HTTPServerHandle struct {
	*http.Server
	api  *api.Server
	addr net.Addr
}

// Port returns the bound TCP port, which differs from the configured one
// when that was 0.
func (h *HTTPServerHandle) Port() int {
	if tcp, ok := h.addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// Shutdown stops accepting requests, waits for in-flight ones and then
// releases the API's background workers.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Close()
	return err
}

// ProvideHTTPServer binds the port and serves the API in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	bus := do.MustInvoke[*SSEManagerHandle](i)

	services := &api.Services{
		Notes:  do.MustInvoke[*notes.Repository](i),
		Ledger: do.MustInvoke[*ledger.Ledger](i),
		Wallet: do.MustInvoke[*service.WalletService](i),
		Chat:   do.MustInvoke[*service.ChatService](i),
		Search: do.MustInvoke[*service.SearchService](i),
	}
	handler := api.NewServer(cfg, storeHandle.Store, services, bus.Manager, log.Component("http"))

	ln, err := net.Listen("tcp", ":"+cfg.Server.Port)
	if err != nil {
		return nil, fmt.Errorf("listen on port %s: %w", cfg.Server.Port, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	log.Info("http server listening", "addr", ln.Addr().String())

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, api: handler, addr: ln.Addr()}, nil
}
