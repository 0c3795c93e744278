package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/harvester/internal/domain"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "single service",
			input:    "http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:  "all services with whitespace",
			input: " http, scheduler ,reaper,ingest-runner",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:         true,
				ServiceModeScheduler:    true,
				ServiceModeReaper:       true,
				ServiceModeIngestRunner: true,
			},
		},
		{
			name:     "case insensitive and empty segments",
			input:    "HTTP,,",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{name: "empty", input: "", expectError: true},
		{name: "only commas", input: " , ,", expectError: true},
		{name: "unknown", input: "http,rules-engine", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "http", cfg.Services)
	assert.Equal(t, "harvester", cfg.Postgres.Name)
	assert.Equal(t, 30*time.Second, cfg.Ingest.FetchTimeout)
	assert.Equal(t, 60*time.Second, cfg.IngestRunner.RetryBaseDelay)
	assert.Equal(t, 10*time.Minute, cfg.IngestRunner.RunTimeout)
	assert.Equal(t, 3, cfg.IngestRunner.MaxRetries)
	assert.Equal(t, domain.OverrunPolicySkip, cfg.Scheduler.OverrunPolicy)
	assert.Equal(t, domain.OverrunStatesDefault, cfg.Scheduler.OverrunStates)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.IsHTTPServerEnabled())
	assert.False(t, cfg.IsSchedulerEnabled())
}

func TestAppConfig_ParsePrefixedEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("INGEST_FETCH_TIMEOUT", "45s")
	t.Setenv("BROWSER_MAX_TABS", "8")
	t.Setenv("BROWSER_ENABLED", "false")
	t.Setenv("SCHEDULER_OVERRUN", "queue")
	t.Setenv("SCHEDULER_OVERRUN_STATES", "running,retrying")
	t.Setenv("SERVICES", "scheduler,ingest-runner")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, 6543, cfg.Postgres.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 45*time.Second, cfg.Ingest.FetchTimeout)
	assert.Equal(t, 8, cfg.Browser.MaxTabs)
	assert.Equal(t, domain.OverrunPolicyQueue, cfg.Scheduler.OverrunPolicy)
	assert.True(t, cfg.Scheduler.OverrunStates.Has(domain.OverrunStateRetrying))
	assert.True(t, cfg.IsIngestRunnerEnabled())
	assert.False(t, cfg.IsHTTPServerEnabled())
	assert.False(t, cfg.NeedsBrowser())
}

func TestAppConfig_ServiceMethodsWithInvalidServices(t *testing.T) {
	cfg := AppConfig{Services: "bogus"}
	assert.False(t, cfg.IsHTTPServerEnabled())
	assert.False(t, cfg.IsReaperEnabled())
	assert.False(t, cfg.NeedsBrowser())
}

func TestNeedsBrowser(t *testing.T) {
	cfg := AppConfig{Services: "reaper", Browser: BrowserConfig{Enabled: true}}
	assert.False(t, cfg.NeedsBrowser())
	cfg.Services = "reaper,ingest-runner"
	assert.True(t, cfg.NeedsBrowser())
}

func TestValidServiceModes(t *testing.T) {
	modes := ValidServiceModes()
	assert.Len(t, modes, 4)
	for _, m := range modes {
		_, err := ParseServices(string(m))
		assert.NoError(t, err)
	}
}

func TestSanitize_Clamps(t *testing.T) {
	r := ReaperConfig{Interval: time.Second, BatchSize: 50000}
	r.Sanitize()
	assert.Equal(t, time.Minute, r.Interval)
	assert.Equal(t, 10000, r.BatchSize)
	assert.Equal(t, 24*time.Hour, r.RunLogMaxAge)

	j := IngestRunnerConfig{}
	j.Sanitize()
	assert.Equal(t, 1, j.Concurrency)
	assert.Equal(t, 5*time.Second, j.JobLease)
	assert.Equal(t, time.Second, j.RetryBaseDelay)

	b := BrowserConfig{MaxTabs: 0, SettleDelay: -time.Second}
	b.Sanitize()
	assert.Equal(t, 1, b.MaxTabs)
	assert.Zero(t, b.SettleDelay)

	h := HTTPConfig{MaxPageSize: 5000}
	h.Sanitize()
	assert.Equal(t, 1000, h.MaxPageSize)
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	c := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "  ", Prefix: ".harvester."}
	c.Sanitize()
	assert.False(t, c.IsEnabled())
	assert.Equal(t, "harvester", c.Prefix)

	c = ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "127.0.0.1:8125"}
	c.Sanitize()
	assert.True(t, c.IsEnabled())
}
