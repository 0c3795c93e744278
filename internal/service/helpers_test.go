package service

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type metricCall struct {
	name  string
	value float64
	tags  map[string]string
}

type recordingSink struct {
	mu    sync.Mutex
	calls []metricCall
}

func (s *recordingSink) Count(name string, value int64, tags map[string]string) {
	s.add(name, float64(value), tags)
}

func (s *recordingSink) Gauge(name string, value float64, tags map[string]string) {
	s.add(name, value, tags)
}

func (s *recordingSink) Timing(name string, value time.Duration, tags map[string]string) {
	s.add(name, float64(value.Milliseconds()), tags)
}

func (s *recordingSink) add(name string, value float64, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, metricCall{name: name, value: value, tags: tags})
}

func (s *recordingSink) named(name string) []metricCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []metricCall
	for _, c := range s.calls {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }
