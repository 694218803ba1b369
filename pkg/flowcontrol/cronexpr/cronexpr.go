// Package cronexpr parses standard 5-field cron expressions and
// computes the next occurrence strictly after a given instant. It is a
// thin wrapper around robfig/cron/v3 used by the job registry both to
// compute the initial next-fire time on reload and to re-arm a job in
// AdvanceCronFire (called by the scheduler after a fire and by the
// runner after a completed run), so every path uses the exact same
// parser configuration.
package cronexpr

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts exactly minute/hour/day-of-month/month/day-of-week —
// no seconds field, no "@every" macros, per spec §2 ("standard 5-field
// cron expression").
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Next returns the first occurrence of expr strictly after after. The
// underlying library guarantees the returned time is always later than
// the instant passed in, satisfying the invariant that
// next_cron_fire_time > the instant it was computed at.
func Next(expr string, after time.Time) (time.Time, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("cronexpr: parse %q: %w", expr, err)
	}
	return sched.Next(after), nil
}

// Valid reports whether expr parses as a valid 5-field cron expression.
func Valid(expr string) bool {
	_, err := parser.Parse(expr)
	return err == nil
}
