package providers

import (
	"github.com/samber/do/v2"

	"github.com/subaccounts/notes-server/internal/config"
	"github.com/subaccounts/notes-server/internal/logger"
	"github.com/subaccounts/notes-server/internal/mdns"
)

// Version is the server version advertised to local clients.
var Version = "dev"

// MDNSHandle wraps the mDNS service with Shutdownable.
type MDNSHandle struct {
	*mdns.Service
}

// Shutdown implements do.Shutdownable.
func (h *MDNSHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideMDNS starts the local network advertisement when enabled. It depends
// on the HTTP server so the advertisement never precedes a listening port.
func ProvideMDNS(i do.Injector) (*MDNSHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	httpServer := do.MustInvoke[*HTTPServerHandle](i)

	svc := mdns.NewService(log.Component("mdns"))
	if !cfg.Server.Advertise {
		return &MDNSHandle{Service: svc}, nil
	}

	port := httpServer.Port()
	if port == 0 {
		log.Warn("mDNS disabled: server has no TCP port")
		return &MDNSHandle{Service: svc}, nil
	}

	ad := mdns.Advertisement{
		Name:     cfg.Wallet.AppName,
		Version:  Version,
		ChainIDs: cfg.Wallet.ChainIDs,
	}
	if err := svc.Start(ad, port); err != nil {
		log.Warn("mDNS advertisement unavailable", "error", err)
	}
	return &MDNSHandle{Service: svc}, nil
}
