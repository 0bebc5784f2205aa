package stats

import (
	"errors"
	"testing"
)

func TestCollector(t *testing.T) {
	c := NewCollector()

	c.Mailbox()
	c.Scanned(10)
	c.Skipped()
	c.Skipped()
	c.Missing()
	c.Appended()
	c.Archived()
	c.DryRun()

	lastErr := errors.New("boom")
	c.Error(errors.New("first"))
	c.Error(lastErr)

	s := c.Snapshot()
	if s.Mailboxes != 1 || s.Scanned != 10 || s.Skipped != 2 || s.Missing != 1 {
		t.Errorf("summary = %+v", s)
	}
	if s.Appended != 1 || s.Archived != 1 || s.DryRun != 1 {
		t.Errorf("summary = %+v", s)
	}
	if s.Errors != 2 || !errors.Is(s.LastError, lastErr) {
		t.Errorf("errors = %d, lastError = %v", s.Errors, s.LastError)
	}
}

func TestSummaryLogAttrs(t *testing.T) {
	s := Summary{Scanned: 3}
	attrs := s.LogAttrs()
	if len(attrs)%2 != 0 {
		t.Fatalf("LogAttrs() returned an odd number of elements: %d", len(attrs))
	}

	s.LastError = errors.New("x")
	if len(s.LogAttrs()) != len(attrs)+2 {
		t.Errorf("lastError not appended to attrs")
	}
}
