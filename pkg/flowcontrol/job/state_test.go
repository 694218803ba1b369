package job

import "testing"

func TestStateStringRoundTrip(t *testing.T) {
	states := []State{Idle, Pending, Running, Success, Failure}
	for _, s := range states {
		name := s.String()
		parsed, err := ParseState(name)
		if err != nil {
			t.Fatalf("ParseState(%q) returned error: %v", name, err)
		}
		if parsed != s {
			t.Fatalf("round trip mismatch: %v -> %q -> %v", s, name, parsed)
		}
	}
}

func TestParseStateUnknown(t *testing.T) {
	if _, err := ParseState("NOT_A_STATE"); err == nil {
		t.Fatal("expected an error for an unknown state name")
	}
}

func TestStateMarshalText(t *testing.T) {
	b, err := Success.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(b) != "SUCCESS" {
		t.Fatalf("got %q, want SUCCESS", b)
	}

	var s State
	if err := s.UnmarshalText([]byte("FAILURE")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if s != Failure {
		t.Fatalf("got %v, want Failure", s)
	}
}

func TestHasCronAndHasDepends(t *testing.T) {
	j := &Job{Name: "plain"}
	if j.HasCron() || j.HasDepends() {
		t.Fatal("a job with no cron and no depends should report both false")
	}

	j.Cron = "*/5 * * * *"
	j.Depends = []string{"other"}
	if !j.HasCron() || !j.HasDepends() {
		t.Fatal("expected both true once Cron and Depends are set")
	}
}

func TestJobCloneIsIndependent(t *testing.T) {
	j := &Job{
		Name:         "original",
		Depends:      []string{"a", "b"},
		Presentation: map[string]any{"x_offset": 10},
	}
	cp := j.Clone()
	cp.Depends[0] = "mutated"
	cp.Presentation["x_offset"] = 99

	if j.Depends[0] != "a" {
		t.Fatalf("mutating the clone's Depends affected the original: %v", j.Depends)
	}
	if j.Presentation["x_offset"] != 10 {
		t.Fatalf("mutating the clone's Presentation affected the original: %v", j.Presentation)
	}
}
