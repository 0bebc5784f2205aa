package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mrehanahmed/IMAP-Migrate/model"
	"github.com/mrehanahmed/IMAP-Migrate/stats"
)

// Ledger is the durable record of completed transfers, keyed by
// (source mailbox, source UID). Single writer, any number of readers.
type Ledger struct {
	db *sqlx.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS transfers (
		id INTEGER PRIMARY KEY,
		src_mailbox TEXT NOT NULL,
		src_uid TEXT NOT NULL,
		dst_mailbox TEXT,
		dst_uid TEXT,
		message_id TEXT,
		transferred_at TIMESTAMP NOT NULL,
		UNIQUE(src_mailbox, src_uid)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transfers_message_id ON transfers(message_id)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		mailboxes INTEGER NOT NULL DEFAULT 0,
		scanned INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		appended INTEGER NOT NULL DEFAULT 0,
		archived INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0
	)`,
}

// Open opens (or creates) the ledger database at path, enables WAL mode and
// applies the schema. Opening an existing ledger never erases data.
func Open(path string) (*Ledger, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply ledger schema: %w", err)
		}
	}

	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// IsTransferred reports whether a record exists for the given source mailbox
// and UID. The pipeline calls this before every per-message operation.
func (l *Ledger) IsTransferred(mailbox, uid string) (bool, error) {
	var n int
	err := l.db.Get(&n,
		"SELECT COUNT(*) FROM transfers WHERE src_mailbox = ? AND src_uid = ?",
		mailbox, uid)
	if err != nil {
		return false, fmt.Errorf("query transfer %s/%s: %w", mailbox, uid, err)
	}
	return n > 0, nil
}

// RecordTransfer durably persists rec, replacing any prior record with the
// same (mailbox, UID) pair. This is the commit point of a message's migration.
func (l *Ledger) RecordTransfer(rec model.TransferRecord) error {
	_, err := l.db.Exec(`
		INSERT OR REPLACE INTO transfers
			(src_mailbox, src_uid, dst_mailbox, dst_uid, message_id, transferred_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SrcMailbox, rec.SrcUID,
		nullable(rec.DstMailbox), nullable(rec.DstUID), nullable(rec.MessageID),
		rec.TransferredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record transfer %s/%s: %w", rec.SrcMailbox, rec.SrcUID, err)
	}
	return nil
}

// TransferredCount returns how many messages of the given source mailbox are
// already recorded. Used to seed progress reporting on resume.
func (l *Ledger) TransferredCount(mailbox string) (int, error) {
	var n int
	err := l.db.Get(&n, "SELECT COUNT(*) FROM transfers WHERE src_mailbox = ?", mailbox)
	if err != nil {
		return 0, fmt.Errorf("count transfers for %s: %w", mailbox, err)
	}
	return n, nil
}

// ByMessageID looks up records via the auxiliary message-id index. The
// Message-ID header is not the idempotency key, so multiple records may match.
func (l *Ledger) ByMessageID(messageID string) ([]model.TransferRecord, error) {
	rows, err := l.db.Queryx(`
		SELECT src_mailbox, src_uid, dst_mailbox, dst_uid, message_id, transferred_at
		FROM transfers WHERE message_id = ? ORDER BY id`,
		messageID)
	if err != nil {
		return nil, fmt.Errorf("query by message id: %w", err)
	}
	defer rows.Close()

	var records []model.TransferRecord
	for rows.Next() {
		rec, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// BeginRun inserts a run-history row and returns its id.
func (l *Ledger) BeginRun() (string, error) {
	id := uuid.New().String()
	_, err := l.db.Exec("INSERT INTO runs (id, started_at) VALUES (?, ?)", id, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run row with its final counters.
func (l *Ledger) FinishRun(id string, summary stats.Summary) error {
	_, err := l.db.Exec(`
		UPDATE runs SET finished_at = ?, mailboxes = ?, scanned = ?, skipped = ?,
			appended = ?, archived = ?, errors = ?
		WHERE id = ?`,
		time.Now().UTC(), summary.Mailboxes, summary.Scanned, summary.Skipped,
		summary.Appended, summary.Archived, summary.Errors, id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	return nil
}

func scanTransfer(rows *sqlx.Rows) (model.TransferRecord, error) {
	var (
		rec                           model.TransferRecord
		dstMailbox, dstUID, messageID sql.NullString
	)
	err := rows.Scan(&rec.SrcMailbox, &rec.SrcUID,
		&dstMailbox, &dstUID, &messageID, &rec.TransferredAt)
	if err != nil {
		return model.TransferRecord{}, fmt.Errorf("scan transfer row: %w", err)
	}
	rec.DstMailbox = dstMailbox.String
	rec.DstUID = dstUID.String
	rec.MessageID = messageID.String
	return rec, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
