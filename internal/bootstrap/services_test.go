package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/harvester/config"
)

func TestErrorChannelCapacity(t *testing.T) {
	tests := []struct {
		name  string
		modes []config.ServiceMode
		want  int
	}{
		{
			name: "no services enabled",
			want: 0,
		},
		{
			name:  "http only",
			modes: []config.ServiceMode{config.ServiceModeHTTP},
			want:  1,
		},
		{
			name:  "scheduler and ingest runner",
			modes: []config.ServiceMode{config.ServiceModeScheduler, config.ServiceModeIngestRunner},
			want:  2,
		},
		{
			name:  "all services enabled",
			modes: config.ValidServiceModes(),
			want:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, mode := range tt.modes {
				enabled[mode] = true
			}

			if got := errorChannelCapacity(enabled); got != tt.want {
				t.Fatalf("errorChannelCapacity(%v) = %d, want %d", tt.modes, got, tt.want)
			}
			if got := errorChannelBufferSize(enabled); got != tt.want+1 {
				t.Fatalf("errorChannelBufferSize(%v) = %d, want %d", tt.modes, got, tt.want+1)
			}
		})
	}
}

func TestLaunchBackgroundSkipsDisabledMode(t *testing.T) {
	deps := &serviceStartupDeps{
		ctx:             context.Background(),
		logger:          slog.New(slog.DiscardHandler),
		enabledServices: map[config.ServiceMode]bool{},
		errCh:           make(chan error, 1),
	}
	done := launchBackground(deps.ctx, deps, backgroundService{
		mode:  config.ServiceModeReaper,
		name:  "reaper",
		start: func(context.Context) error { t.Fatal("must not start"); return nil },
	})
	assert.Nil(t, done)
}

func TestLaunchBackgroundReportsFailure(t *testing.T) {
	deps := &serviceStartupDeps{
		ctx:             context.Background(),
		logger:          slog.New(slog.DiscardHandler),
		enabledServices: map[config.ServiceMode]bool{config.ServiceModeScheduler: true},
		errCh:           make(chan error, 1),
	}
	done := launchBackground(deps.ctx, deps, backgroundService{
		mode:  config.ServiceModeScheduler,
		name:  "scheduler",
		start: func(context.Context) error { return errors.New("boom") },
	})
	require.NotNil(t, done)
	<-done

	select {
	case err := <-deps.errCh:
		assert.ErrorContains(t, err, "scheduler failed: boom")
	default:
		t.Fatal("expected error on channel")
	}
}

func TestLaunchBackgroundIgnoresCancellation(t *testing.T) {
	deps := &serviceStartupDeps{
		ctx:             context.Background(),
		logger:          slog.New(slog.DiscardHandler),
		enabledServices: map[config.ServiceMode]bool{config.ServiceModeIngestRunner: true},
		errCh:           make(chan error, 1),
	}
	done := launchBackground(deps.ctx, deps, backgroundService{
		mode:  config.ServiceModeIngestRunner,
		name:  "ingest runner",
		start: func(context.Context) error { return context.Canceled },
	})
	<-done
	assert.Empty(t, deps.errCh)
}

func TestNewServerTimeouts(t *testing.T) {
	srv := newServer(config.HTTPConfig{Addr: "", SyncRunTimeout: 2 * time.Minute}, http.NotFoundHandler())
	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, 10*time.Second, srv.ReadHeaderTimeout)
	assert.GreaterOrEqual(t, srv.WriteTimeout, 2*time.Minute)

	srv = newServer(config.HTTPConfig{Addr: ":9000", ReadHeaderTimeout: time.Second}, http.NotFoundHandler())
	assert.Equal(t, 30*time.Second, srv.WriteTimeout)
	assert.Equal(t, time.Second, srv.ReadHeaderTimeout)
}

func TestNewServicesRequiresDependencies(t *testing.T) {
	_, err := NewServices(nil)
	require.Error(t, err)
	_, err = NewServices(&ServiceDeps{Config: &config.AppConfig{}})
	require.Error(t, err)
}

func TestBuildIngestDepsWithoutBrowser(t *testing.T) {
	deps := buildIngestDeps(config.IngestConfig{FetchTimeout: 5 * time.Second, UserAgent: "ua"}, nil)
	assert.Nil(t, deps.Renderer)
	require.NotNil(t, deps.HTTPClient)
	assert.Equal(t, 5*time.Second, deps.HTTPClient.Timeout)
	assert.Equal(t, "ua", deps.UserAgent)
}

func TestBuildHealthChecksOmitsMissingBackends(t *testing.T) {
	assert.Empty(t, buildHealthChecks(nil, nil))
}

func TestBuildMetricsSinkDisabled(t *testing.T) {
	assert.Nil(t, buildMetricsSink(slog.New(slog.DiscardHandler), config.ObservabilityMetricsConfig{}))
}
