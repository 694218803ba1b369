package registry

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LogChunk reads today's log for jobName, prefixes it with the absolute
// filename, and slices the result by the "a:b" character range — an
// empty range means the whole thing, ":N"/"N:" honor open ends, exactly
// like Python's s[a:b] slice syntax the original used directly
// (spec §4.5, request_log_chunk).
func (r *Registry) LogChunk(jobName, rangeSpec string) (string, error) {
	filename := r.LogFilename(jobName, time.Now())

	data, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return fmt.Sprintf("This job may not have run for today yet.\n\nlog file at %s does not exist.", filename), nil
	}
	if err != nil {
		return "", fmt.Errorf("registry: read log %s: %w", filename, err)
	}

	s := filename + "\n-----\n" + string(data)
	return sliceRange(s, rangeSpec)
}

// sliceRange applies a Python-style s[a:b] slice over s. Indices are in
// runes, not bytes, so multi-byte log content slices predictably.
func sliceRange(s, rangeSpec string) (string, error) {
	runes := []rune(s)
	n := len(runes)

	if strings.TrimSpace(rangeSpec) == "" {
		return s, nil
	}

	parts := strings.SplitN(rangeSpec, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("registry: invalid log range %q", rangeSpec)
	}

	start, err := parseSliceIndex(parts[0], 0, n)
	if err != nil {
		return "", err
	}
	end, err := parseSliceIndex(parts[1], n, n)
	if err != nil {
		return "", err
	}

	start = clamp(start, 0, n)
	end = clamp(end, 0, n)
	if start >= end {
		return "", nil
	}
	return string(runes[start:end]), nil
}

func parseSliceIndex(raw string, def, n int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("registry: invalid log range index %q", raw)
	}
	if v < 0 {
		v += n
	}
	return v, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
