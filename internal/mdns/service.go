// Package mdns advertises the notes server on the local network so demo
// clients can find it without a configured URL.
package mdns

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/mdns"
)

const (
	// ServiceType is the mDNS service type for notes servers.
	ServiceType = "_subnotes._tcp"

	// APIVersion is the API version advertised in TXT records.
	APIVersion = "v1"
)

// Advertisement describes what the server announces about itself.
type Advertisement struct {
	Name     string
	Version  string
	ChainIDs []uint64
}

// Records builds the TXT records for the advertisement.
func (a Advertisement) Records() []string {
	records := []string{
		"name=" + a.Name,
		"version=" + a.Version,
		"api=" + APIVersion,
	}
	if len(a.ChainIDs) > 0 {
		chains := make([]string, len(a.ChainIDs))
		for i, id := range a.ChainIDs {
			chains[i] = strconv.FormatUint(id, 10)
		}
		records = append(records, "chains="+strings.Join(chains, ","))
	}
	return records
}

// Service manages mDNS advertisement for the server.
type Service struct {
	server *mdns.Server
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService creates a new mDNS service.
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		logger: logger,
	}
}

// Start begins advertising the server on port. Calling Start again restarts
// the advertisement. Errors are usually environmental (no multicast in
// containers) and callers treat them as non-fatal.
func (s *Service) Start(ad Advertisement, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
	}

	host, err := os.Hostname()
	if err != nil {
		host = "notes-server"
	}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, ad.Records())
	if err != nil {
		return fmt.Errorf("create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("start mDNS server: %w", err)
	}
	s.server = server

	s.logger.Info("mDNS advertisement started",
		"service", ServiceType,
		"port", port,
		"name", ad.Name,
	)
	return nil
}

// Running reports whether an advertisement is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server != nil
}

// Stop stops advertising. Safe to call multiple times or if not started.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
		s.logger.Info("mDNS advertisement stopped")
	}
}
