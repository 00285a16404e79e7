package customHttpClient

import (
	"testing"

	"github.com/akolanti/DocQA/internal/config"
)

func TestNewPooledClient_SharesTransport(t *testing.T) {
	a, b := NewPooledClient(), NewPooledClient()
	if a == b {
		t.Fatal("expected distinct clients")
	}
	if a.Transport != b.Transport {
		t.Error("expected clients to share one transport")
	}
	if got := pooledTransport().MaxIdleConnsPerHost; got != config.MaxIdleConnsPerHost {
		t.Errorf("MaxIdleConnsPerHost = %d; want %d", got, config.MaxIdleConnsPerHost)
	}
}
