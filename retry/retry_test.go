package retry

import (
	"errors"
	"testing"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"
)

func TestDo_LinearBackoff(t *testing.T) {
	var slept []time.Duration
	policy := Policy{
		MaxAttempts: 4,
		BaseDelay:   5 * time.Second,
		Sleep:       func(d time.Duration) { slept = append(slept, d) },
	}

	attempts := 0
	wantErr := errors.New("connection reset")
	err := policy.Do("search", func() error {
		attempts++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("Do() error = %v, want the last error", err)
	}
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4", attempts)
	}

	want := []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("slept %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestDo_SucceedsMidway(t *testing.T) {
	sleeps := 0
	policy := Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep:       func(time.Duration) { sleeps++ },
	}

	attempts := 0
	err := policy.Do("fetch", func() error {
		attempts++
		if attempts < 2 {
			return errors.New("broken pipe")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	if attempts != 2 || sleeps != 1 {
		t.Errorf("attempts = %d, sleeps = %d, want 2 and 1", attempts, sleeps)
	}
}

func TestDo_TerminalErrorNotRetried(t *testing.T) {
	policy := Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		Sleep: func(time.Duration) {
			t.Fatalf("slept for a terminal error")
		},
	}

	attempts := 0
	respErr := &imapv2.Error{Type: imapv2.StatusResponseTypeNo, Text: "mailbox does not exist"}
	err := policy.Do("select", func() error {
		attempts++
		return respErr
	})

	if !errors.Is(err, respErr) {
		t.Fatalf("Do() error = %v, want the server response", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestTransient(t *testing.T) {
	if Transient(nil) {
		t.Errorf("nil error reported transient")
	}
	if !Transient(errors.New("connection reset by peer")) {
		t.Errorf("transport error not reported transient")
	}

	respErr := &imapv2.Error{Type: imapv2.StatusResponseTypeNo, Text: "NO"}
	if Transient(respErr) {
		t.Errorf("tagged server response reported transient")
	}

	wrapped := errors.Join(errors.New("append"), respErr)
	if Transient(wrapped) {
		t.Errorf("wrapped server response reported transient")
	}
}
