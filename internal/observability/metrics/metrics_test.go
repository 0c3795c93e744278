package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/harvester/internal/domain/ingest"
	"github.com/target/harvester/internal/domain/model"
)

type recordedMetric struct {
	kind  string
	name  string
	value float64
	tags  map[string]string
}

type recordingSink struct {
	mu      sync.Mutex
	metrics []recordedMetric
}

func (s *recordingSink) Count(name string, value int64, tags map[string]string) {
	s.add("count", name, float64(value), tags)
}

func (s *recordingSink) Gauge(name string, value float64, tags map[string]string) {
	s.add("gauge", name, value, tags)
}

func (s *recordingSink) Timing(name string, value time.Duration, tags map[string]string) {
	s.add("timing", name, float64(value.Milliseconds()), tags)
}

func (s *recordingSink) add(kind, name string, value float64, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, recordedMetric{kind: kind, name: name, value: value, tags: tags})
}

func (s *recordingSink) byName(name string) []recordedMetric {
	var out []recordedMetric
	for _, m := range s.metrics {
		if m.name == name {
			out = append(out, m)
		}
	}
	return out
}

func TestEmitJobLifecycle(t *testing.T) {
	sink := &recordingSink{}
	EmitJobLifecycle(sink, JobMetric{
		JobType:    "ingest",
		Transition: "failed",
		Result:     ResultError,
		Duration:   2 * time.Second,
		Err:        &ingest.FetchError{Source: "s", Op: "get", Err: errors.New("refused")},
	})

	transitions := sink.byName("job.transition")
	require.Len(t, transitions, 1)
	assert.Equal(t, "fetch", transitions[0].tags["error_class"])
	assert.Equal(t, "failed", transitions[0].tags["transition"])

	durations := sink.byName("job.duration")
	require.Len(t, durations, 1)
	assert.InDelta(t, 2000, durations[0].value, 0.1)

	EmitJobLifecycle(nil, JobMetric{})
}

func TestEmitIngestRun(t *testing.T) {
	sink := &recordingSink{}
	EmitIngestRun(sink, RunMetric{
		SourceKind: "api",
		Status:     model.RunStatusPartial,
		Counts:     model.RunCounts{Found: 5, Ingested: 2, Deduplicated: 2, Skipped: 1},
		Duration:   time.Second,
	})

	runs := sink.byName("ingest.run")
	require.Len(t, runs, 1)
	assert.Equal(t, ResultSuccess, runs[0].tags["result"])
	assert.Equal(t, "partial", runs[0].tags["status"])
	assert.NotContains(t, runs[0].tags, "error_class")

	items := map[string]float64{}
	for _, m := range sink.byName("ingest.items") {
		items[m.tags["outcome"]] = m.value
	}
	assert.Equal(t, map[string]float64{"found": 5, "ingested": 2, "deduplicated": 2, "skipped": 1}, items)
}

func TestCloneTags(t *testing.T) {
	assert.Nil(t, CloneTags(nil))
	src := map[string]string{"a": "b"}
	cp := CloneTags(src)
	cp["a"] = "c"
	assert.Equal(t, "b", src["a"])
}
