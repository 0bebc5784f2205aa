package backup

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-mbox"

	"github.com/mrehanahmed/IMAP-Migrate/model"
)

// Archive writes a local mbox copy of every migrated message, one file per
// source mailbox. It is a best-effort safety net; callers log and continue on
// write failures.
type Archive struct {
	dir    string
	logger *slog.Logger
	files  map[string]*mailboxFile
}

type mailboxFile struct {
	file   *os.File
	writer *mbox.Writer
}

// Open prepares the backup directory. The mbox files themselves are created
// lazily, on the first message of each mailbox.
func Open(dir string, logger *slog.Logger) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &Archive{
		dir:    dir,
		logger: logger,
		files:  make(map[string]*mailboxFile),
	}, nil
}

// Write appends msg to the mbox file for the given source mailbox.
func (a *Archive) Write(mailbox string, msg *model.Message) error {
	mf, err := a.open(mailbox)
	if err != nil {
		return err
	}

	date := msg.InternalDate
	if date.IsZero() {
		date = time.Now()
	}
	w, err := mf.writer.CreateMessage("imap-migrate", date)
	if err != nil {
		return fmt.Errorf("backup %s: %w", mailbox, err)
	}
	if _, err := w.Write(msg.Raw); err != nil {
		return fmt.Errorf("backup %s uid %d: %w", mailbox, msg.UID, err)
	}
	return nil
}

// Close flushes and closes all open mbox files.
func (a *Archive) Close() error {
	var firstErr error
	for name, mf := range a.files {
		if err := mf.writer.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close backup %s: %w", name, err)
		}
		if err := mf.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close backup %s: %w", name, err)
		}
	}
	a.files = make(map[string]*mailboxFile)
	return firstErr
}

func (a *Archive) open(mailbox string) (*mailboxFile, error) {
	if mf, ok := a.files[mailbox]; ok {
		return mf, nil
	}

	path := filepath.Join(a.dir, fileName(mailbox)+".mbox")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open backup file %s: %w", path, err)
	}

	mf := &mailboxFile{file: file, writer: mbox.NewWriter(file)}
	a.files[mailbox] = mf
	a.logger.Debug("backup file opened", "mailbox", mailbox, "path", path)
	return mf, nil
}

var fileNameReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")

// fileName flattens a hierarchical mailbox name into a single path segment.
func fileName(mailbox string) string {
	return fileNameReplacer.Replace(mailbox)
}
