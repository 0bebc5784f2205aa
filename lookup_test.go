package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mrehanahmed/IMAP-Migrate/ledger"
	"github.com/mrehanahmed/IMAP-Migrate/model"
)

func TestLookupCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	led, err := ledger.Open(dbPath)
	if err != nil {
		t.Fatalf("ledger.Open() error = %v", err)
	}
	records := []model.TransferRecord{
		{SrcMailbox: "INBOX", SrcUID: "7", DstMailbox: "Imported",
			MessageID: "abc@example.org", TransferredAt: time.Now()},
		{SrcMailbox: "Sent", SrcUID: "2", DstMailbox: "Sent",
			MessageID: "abc@example.org", TransferredAt: time.Now()},
	}
	for _, rec := range records {
		if err := led.RecordTransfer(rec); err != nil {
			t.Fatalf("RecordTransfer() error = %v", err)
		}
	}
	if err := led.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var out bytes.Buffer
	cmd := lookupCmd()
	cmd.SetOut(&out)
	// Angle brackets are accepted and stripped, matching how ids are stored.
	cmd.SetArgs([]string{"--database", dbPath, "<abc@example.org>"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "INBOX uid 7 -> Imported") {
		t.Errorf("output missing INBOX record:\n%s", got)
	}
	if !strings.Contains(got, "Sent uid 2 -> Sent") {
		t.Errorf("output missing Sent record:\n%s", got)
	}

	out.Reset()
	cmd = lookupCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--database", dbPath, "missing@example.org"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "no transfers recorded") {
		t.Errorf("output for an unknown id = %q", out.String())
	}
}
