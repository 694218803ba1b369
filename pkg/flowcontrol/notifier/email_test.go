package notifier

import (
	"context"
	"strings"
	"testing"
)

func TestSplitAddressesTrimsAndDropsEmpty(t *testing.T) {
	got := splitAddresses(" a@example.com ,b@example.com,, c@example.com")
	want := []string{"a@example.com", "b@example.com", "c@example.com"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSplitAddressesEmptyString(t *testing.T) {
	if got := splitAddresses(""); len(got) != 0 {
		t.Fatalf("expected no addresses, got %v", got)
	}
}

func TestBuildMessageIncludesHeaders(t *testing.T) {
	msg := string(buildMessage("orchestrator@example.com", []string{"ops@example.com"}, "Job Succeeded: root", "output here"))
	if !strings.Contains(msg, "From: orchestrator@example.com") {
		t.Fatalf("missing From header: %s", msg)
	}
	if !strings.Contains(msg, "Subject: Job Succeeded: root") {
		t.Fatalf("missing Subject header: %s", msg)
	}
	if !strings.HasSuffix(msg, "output here") {
		t.Fatalf("missing body: %s", msg)
	}
}

func TestEmailSendEmptyRecipientsSkips(t *testing.T) {
	// With no recipients, Send must return before ever touching SMTP, so
	// this must not block or error even with no mail relay present.
	s := NewEmailSink("from@example.com", nil)
	ctx := context.Background()
	s.Send(ctx, "", "subject", "body")
	s.Send(ctx, "   ", "subject", "body")
}
