package registry

import "testing"

func TestSliceRangeEmptyReturnsWhole(t *testing.T) {
	got, err := sliceRange("hello world", "")
	if err != nil {
		t.Fatalf("sliceRange: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestSliceRangeFirstN(t *testing.T) {
	got, err := sliceRange("0123456789", "0:4")
	if err != nil {
		t.Fatalf("sliceRange: %v", err)
	}
	if got != "0123" {
		t.Fatalf("got %q, want 0123", got)
	}
}

func TestSliceRangeOpenEnds(t *testing.T) {
	s := "0123456789"

	got, err := sliceRange(s, ":4")
	if err != nil || got != "0123" {
		t.Fatalf("sliceRange(:4) = %q, %v", got, err)
	}

	got, err = sliceRange(s, "6:")
	if err != nil || got != "6789" {
		t.Fatalf("sliceRange(6:) = %q, %v", got, err)
	}
}

func TestSliceRangeNegativeIndices(t *testing.T) {
	s := "0123456789"
	got, err := sliceRange(s, "-4:")
	if err != nil {
		t.Fatalf("sliceRange: %v", err)
	}
	if got != "6789" {
		t.Fatalf("got %q, want 6789", got)
	}
}

func TestSliceRangeOutOfBoundsClamped(t *testing.T) {
	s := "0123"
	got, err := sliceRange(s, "0:1000")
	if err != nil || got != s {
		t.Fatalf("sliceRange(0:1000) = %q, %v, want whole string", got, err)
	}
}

func TestSliceRangeStartAfterEndIsEmpty(t *testing.T) {
	got, err := sliceRange("0123", "3:1")
	if err != nil {
		t.Fatalf("sliceRange: %v", err)
	}
	if got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestLogChunkMissingFile(t *testing.T) {
	reg := newTestRegistry(t)
	chunk, err := reg.LogChunk("root", "")
	if err != nil {
		t.Fatalf("LogChunk: %v", err)
	}
	if chunk == "" {
		t.Fatal("expected a human-readable message for a missing log file")
	}
}
