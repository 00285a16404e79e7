package customHttpClient

import (
	"net/http"
	"sync"

	"github.com/akolanti/DocQA/internal/config"
)

var (
	transportOnce   sync.Once
	customTransport *http.Transport
)

func pooledTransport() *http.Transport {
	transportOnce.Do(func() {
		customTransport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        config.MaxIdleConns,
			MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
			IdleConnTimeout:     config.IdleConnTimeout,
		}
	})
	return customTransport
}

// NewPooledClient returns a client sharing one keep-alive pool with every other model client.
// Deadlines come from the request context, so the client itself has no timeout.
func NewPooledClient() *http.Client {
	return &http.Client{Transport: pooledTransport()}
}
