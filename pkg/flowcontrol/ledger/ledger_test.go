package ledger

import (
	"path/filepath"
	"testing"
)

func TestAppendCreatesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	l := New()

	if err := l.Append(dir, "dep1", "job_a", "PENDING", "dependencies met"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append(dir, "dep1", "job_a", "RUNNING", "dispatched"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entries, err := l.ReadToday(dir, "dep1")
	if err != nil {
		t.Fatalf("ReadToday: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].State != "PENDING" || entries[1].State != "RUNNING" {
		t.Fatalf("entries out of order: %+v", entries)
	}
}

func TestReadMissingFileReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	l := New()

	entries, err := l.Read(dir, "ghost", "20260101")
	if err != nil {
		t.Fatalf("Read on a missing file should not error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("got %d entries, want 0", len(entries))
	}
}

func TestSanitizeFieldStripsCommasAndNewlines(t *testing.T) {
	dir := t.TempDir()
	l := New()

	if err := l.Append(dir, "dep1", "job_a", "FAILURE", "oops, it broke\nline two"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entries, err := l.ReadToday(dir, "dep1")
	if err != nil {
		t.Fatalf("ReadToday: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Reason != "oops; it broke line two" {
		t.Fatalf("got reason %q", entries[0].Reason)
	}
}

func TestFilenameLayout(t *testing.T) {
	dir := t.TempDir()
	l := New()
	if err := l.Append(dir, "dep1", "job_a", "SUCCESS", "Job Completed"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entries, err := l.Read(dir, "dep1", entries0Date(t, dir, "dep1"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
}

// entries0Date reads back today's date the same way the ledger derives
// its filename, so the test doesn't hardcode a date format twice.
func entries0Date(t *testing.T, dir, uid string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, uid+".*.ledger"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected exactly one ledger file, got %v (err %v)", matches, err)
	}
	base := filepath.Base(matches[0])
	// {uid}.{date}.ledger
	return base[len(uid)+1 : len(base)-len(".ledger")]
}
