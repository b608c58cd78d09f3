package mdns

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvertisementRecords(t *testing.T) {
	ad := Advertisement{Name: "Demo", Version: "dev", ChainIDs: []uint64{84532, 8453}}

	assert.Equal(t, []string{
		"name=Demo",
		"version=dev",
		"api=v1",
		"chains=84532,8453",
	}, ad.Records())

	ad.ChainIDs = nil
	assert.NotContains(t, ad.Records(), "chains=")
	assert.Len(t, ad.Records(), 3)
}

func TestServiceStop(t *testing.T) {
	t.Run("stop when not started is safe", func(t *testing.T) {
		service := NewService(nil)

		service.Stop()
		assert.False(t, service.Running())
	})

	t.Run("stop can be called multiple times", func(t *testing.T) {
		service := NewService(nil)

		service.Stop()
		service.Stop()
		assert.False(t, service.Running())
	})
}

func TestServiceLifecycle(t *testing.T) {
	// Multicast is often unavailable in containers and CI.
	var buf bytes.Buffer
	service := NewService(slog.New(slog.NewTextHandler(&buf, nil)))
	ad := Advertisement{Name: "Lifecycle", Version: "dev"}

	if err := service.Start(ad, 8080); err != nil {
		t.Skipf("mDNS not available: %v", err)
	}
	assert.True(t, service.Running())
	assert.Contains(t, buf.String(), "mDNS advertisement started")

	require.NoError(t, service.Start(ad, 8081), "restart")
	assert.True(t, service.Running())

	done := make(chan struct{})
	for range 5 {
		go func() {
			service.Stop()
			done <- struct{}{}
		}()
	}
	for range 5 {
		<-done
	}

	assert.False(t, service.Running())
	assert.Contains(t, buf.String(), "mDNS advertisement stopped")
}
