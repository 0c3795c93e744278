package config

import (
	"strings"
	"time"
)

// IngestConfig controls how pipeline runs fetch from sources.
type IngestConfig struct {
	// FetchTimeout bounds the fetch step of one run, including browser rendering.
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`

	// UserAgent is sent by the API strategy and the browser.
	UserAgent string `env:"USER_AGENT" envDefault:"harvester/1.0"`

	// MaxResponseBytes caps API response bodies.
	MaxResponseBytes int64 `env:"MAX_RESPONSE_BYTES" envDefault:"10485760"`
}

// Sanitize applies guardrails to ingest configuration values.
func (c *IngestConfig) Sanitize() {
	if c.FetchTimeout < time.Second {
		c.FetchTimeout = time.Second
	}
	c.UserAgent = strings.TrimSpace(c.UserAgent)
	if c.UserAgent == "" {
		c.UserAgent = "harvester/1.0"
	}
	if c.MaxResponseBytes < 1024 {
		c.MaxResponseBytes = 1024
	}
}

// BrowserConfig controls the shared headless browser used by browser sources.
type BrowserConfig struct {
	// Enabled starts a browser in processes that execute runs.
	Enabled bool `env:"ENABLED" envDefault:"true"`

	// MaxTabs bounds concurrently open tabs.
	MaxTabs int `env:"MAX_TABS" envDefault:"4"`

	// ExecPath overrides the Chrome binary; empty uses the chromedp lookup.
	ExecPath string `env:"EXEC_PATH"`

	// Headless runs Chrome without a window.
	Headless bool `env:"HEADLESS" envDefault:"true"`

	// SettleDelay is an optional extra wait after the page reports network idle.
	SettleDelay time.Duration `env:"SETTLE_DELAY" envDefault:"0s"`
}

// Sanitize applies guardrails to browser configuration values.
func (c *BrowserConfig) Sanitize() {
	if c.MaxTabs < 1 {
		c.MaxTabs = 1
	}
	if c.MaxTabs > 32 {
		c.MaxTabs = 32
	}
	c.ExecPath = strings.TrimSpace(c.ExecPath)
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
}
