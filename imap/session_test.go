package imap

import (
	"errors"
	"testing"

	imapv2 "github.com/emersion/go-imap/v2"
)

func TestAppendableFlags(t *testing.T) {
	flags := []imapv2.Flag{imapv2.FlagSeen, imapv2.Flag("\\Recent"), imapv2.FlagAnswered}
	got := appendableFlags(flags)

	if len(got) != 2 {
		t.Fatalf("appendableFlags() = %v, want \\Recent dropped", got)
	}
	for _, f := range got {
		if f == imapv2.Flag("\\Recent") {
			t.Errorf("\\Recent survived: %v", got)
		}
	}
}

func TestConnectionErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &ConnectionError{Addr: "mail.example.org:993", Err: cause}

	if !errors.Is(err, cause) {
		t.Errorf("ConnectionError does not unwrap to its cause")
	}
	var connErr *ConnectionError
	if !errors.As(error(err), &connErr) {
		t.Errorf("errors.As failed for ConnectionError")
	}
}
