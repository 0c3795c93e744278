package config

import "time"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// ReadHeaderTimeout bounds how long the server waits for request headers.
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`

	// SyncRunTimeout caps synchronous pipeline runs triggered over HTTP.
	SyncRunTimeout time.Duration `env:"HTTP_SYNC_RUN_TIMEOUT" envDefault:"2m"`

	// MaxPageSize caps list endpoints.
	MaxPageSize int `env:"HTTP_MAX_PAGE_SIZE" envDefault:"200"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.ReadHeaderTimeout <= 0 {
		h.ReadHeaderTimeout = 10 * time.Second
	}
	if h.SyncRunTimeout < time.Second {
		h.SyncRunTimeout = time.Second
	}
	if h.MaxPageSize < 1 {
		h.MaxPageSize = 1
	}
	if h.MaxPageSize > 1000 {
		h.MaxPageSize = 1000
	}
}
