package cronexpr

import (
	"testing"
	"time"
)

func TestNextIsStrictlyAfter(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	next, err := Next("*/5 * * * *", now)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !next.After(now) {
		t.Fatalf("Next(%v) = %v, want strictly after now", now, next)
	}
}

func TestNextOnExactBoundary(t *testing.T) {
	// now lands exactly on a fire minute; the next occurrence must still
	// be strictly later, never the same instant.
	now := time.Date(2026, 3, 15, 10, 5, 0, 0, time.UTC)
	next, err := Next("*/5 * * * *", now)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !next.After(now) {
		t.Fatalf("Next(%v) = %v, want strictly after now even on an exact boundary", now, next)
	}
	if next.Sub(now) < time.Minute {
		t.Fatalf("Next(%v) = %v, want the following occurrence, not the same one", now, next)
	}
}

func TestValid(t *testing.T) {
	if !Valid("0 9 * * 1-5") {
		t.Fatal("expected a standard 5-field expression to be valid")
	}
	if Valid("not a cron expression") {
		t.Fatal("expected an invalid expression to be rejected")
	}
	if Valid("* * * * * *") {
		t.Fatal("expected a 6-field (seconds) expression to be rejected — standard 5-field only")
	}
}
