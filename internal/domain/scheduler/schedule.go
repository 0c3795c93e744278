package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ParseSchedule parses a poll interval expressed as a standard 5-field cron spec
// or a descriptor such as "@hourly" or "@every 6h".
func ParseSchedule(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("poll interval is required")
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid poll interval %q: %w", expr, err)
	}
	return sched, nil
}

// NextPoll returns the first activation of expr strictly after from.
func NextPoll(expr string, from time.Time) (time.Time, error) {
	sched, err := ParseSchedule(expr)
	if err != nil {
		return time.Time{}, err
	}
	next := sched.Next(from)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("poll interval %q never fires", expr)
	}
	return next, nil
}
