package metrics

import (
	"time"

	"github.com/target/harvester/internal/domain/model"
	"github.com/target/harvester/internal/observability/statsd"
)

// RunMetric describes one finished pipeline run.
type RunMetric struct {
	SourceKind string
	Status     model.RunStatus
	Counts     model.RunCounts
	Duration   time.Duration
	Err        error
}

// EmitIngestRun emits ingest.run tagged by status plus per-item counters.
func EmitIngestRun(sink statsd.Sink, in RunMetric) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	if in.Status == model.RunStatusFailed {
		result = ResultError
	}
	tags := map[string]string{
		"kind":   in.SourceKind,
		"status": string(in.Status),
		"result": result,
	}
	addErrorClass(tags, result, in.Err)

	sink.Count("ingest.run", 1, tags)
	if in.Duration > 0 {
		sink.Timing("ingest.run_duration", in.Duration, CloneTags(tags))
	}

	items := map[string]int{
		"found":        in.Counts.Found,
		"ingested":     in.Counts.Ingested,
		"deduplicated": in.Counts.Deduplicated,
		"skipped":      in.Counts.Skipped,
	}
	for outcome, n := range items {
		if n == 0 {
			continue
		}
		sink.Count("ingest.items", int64(n), map[string]string{"kind": in.SourceKind, "outcome": outcome})
	}
}
