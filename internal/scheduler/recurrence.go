package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Recurrence rules come in two shapes: a plain Go duration ("5m", "1h30m")
// meaning "that long after each successful run", or anything the standard
// cron parser accepts (5-field expressions and @every/@hourly descriptors).

// NextRun computes the next due time for a rule applied to a run's start
// time. The result is always strictly after from.
func NextRun(rule string, from time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(rule); err == nil {
		if d <= 0 {
			return time.Time{}, fmt.Errorf("recurrence interval must be positive, got %q", rule)
		}
		return from.Add(d), nil
	}

	schedule, err := cron.ParseStandard(rule)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid recurrence rule %q: %w", rule, err)
	}

	next := schedule.Next(from)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("recurrence rule %q has no next activation", rule)
	}
	return next, nil
}

// ValidateRule reports whether a recurrence rule is acceptable at job
// creation time. The empty rule (one-shot) is valid.
func ValidateRule(rule string) error {
	if rule == "" {
		return nil
	}
	_, err := NextRun(rule, time.Now())
	return err
}
