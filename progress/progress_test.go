package progress

import (
	"testing"
)

func TestBarCountsOnlyThisRun(t *testing.T) {
	b := New("info")
	b.Start("INBOX", 10, 4)
	if b.pb == nil {
		t.Fatalf("bar not started at info level")
	}

	// The pipeline advances past every message, resumed ones included, so the
	// counter must start at zero or it overshoots the total on resume.
	b.Advance("INBOX", 6)
	b.Advance("INBOX", 4)
	if b.pb.Current != 10 {
		t.Errorf("Current = %d, want 10 after advancing all messages once", b.pb.Current)
	}
	b.Done("INBOX")
}

func TestBarDisabledOutsideInfoLevel(t *testing.T) {
	b := New("debug")
	b.Start("INBOX", 5, 0)
	if b.pb != nil {
		t.Fatalf("bar active at debug level")
	}

	// Advancing and finishing a disabled bar is a no-op, not a panic.
	b.Advance("INBOX", 1)
	b.Done("INBOX")
}
