package runner

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"

	"github.com/mrehanahmed/IMAP-Migrate/imap"
	"github.com/mrehanahmed/IMAP-Migrate/model"
	"github.com/mrehanahmed/IMAP-Migrate/retry"
)

const (
	searchAttempts  = 5
	searchBaseDelay = 5 * time.Second

	// Fetch and append get a smaller budget because each failed attempt also
	// pays for a full reconnect of the session.
	transferAttempts = 3
)

// migrateMailbox runs the batch pipeline for one mailbox, end to end. Both
// sessions are closed on every exit path.
func (r *Runner) migrateMailbox(srcBox, dstBox string) error {
	log := r.logger.With("mailbox", srcBox, "destination", dstBox)
	log.Info("migrating mailbox")

	src, err := r.dial(r.cfg.Source)
	if err != nil {
		return err
	}
	defer src.Logout()

	dst, err := r.dial(r.cfg.Destination)
	if err != nil {
		return err
	}
	defer dst.Logout()

	if !dst.EnsureSelected(dstBox) {
		log.Warn("destination mailbox not selectable, skipping mailbox")
		return nil
	}

	archiveBox := r.cfg.Options.ArchivePrefix + srcBox
	if !src.EnsureSelected(archiveBox) {
		log.Warn("could not ensure archive mailbox, per-message archiving will fail",
			"archive", archiveBox)
	}

	if err := src.Select(srcBox); err != nil {
		return err
	}

	var uids []imapv2.UID
	policy := retry.Policy{
		MaxAttempts: searchAttempts,
		BaseDelay:   searchBaseDelay,
		Logger:      log,
		Sleep:       r.sleep,
	}
	if err := policy.Do("search", func() error {
		var err error
		uids, err = src.SearchAll()
		return err
	}); err != nil {
		return fmt.Errorf("search %s: %w", srcBox, err)
	}

	r.stats.Scanned(len(uids))

	alreadyDone, err := r.ledger.TransferredCount(srcBox)
	if err != nil {
		return err
	}
	if r.progress != nil {
		r.progress.Start(srcBox, len(uids), alreadyDone)
		defer r.progress.Done(srcBox)
	}
	log.Info("source mailbox enumerated", "messages", len(uids), "alreadyTransferred", alreadyDone)

	for _, batch := range batches(uids, r.cfg.Options.BatchSize) {
		fetched, err := r.fetchBatch(src, srcBox, batch, log)
		if err != nil {
			if connectionLost(err) {
				// The session could not be re-established; no later batch can
				// succeed on it either.
				return fmt.Errorf("source connection lost: %w", err)
			}
			// Messages of this batch stay untransferred and are picked up by
			// a future run.
			log.Warn("fetch failed, skipping batch", "size", len(batch), "err", err)
			r.stats.Error(err)
			continue
		}

		for _, uid := range batch {
			if err := r.transferMessage(src, dst, srcBox, dstBox, archiveBox, uid, fetched[uid], log); err != nil {
				return err
			}
		}

		if r.progress != nil {
			r.progress.Advance(srcBox, len(batch))
		}
		if pause := r.cfg.Options.SleepBetween(); pause > 0 {
			r.sleep(pause)
		}
	}

	return nil
}

// fetchBatch fetches one batch, reconnecting and re-selecting the source
// between attempts because a fetch abort implies the session itself is dead.
func (r *Runner) fetchBatch(src Session, srcBox string, batch []imapv2.UID, log *slog.Logger) (map[imapv2.UID]*model.Message, error) {
	var lastErr error
	for attempt := 1; attempt <= transferAttempts; attempt++ {
		fetched, err := src.FetchBatch(batch)
		if err == nil {
			return fetched, nil
		}
		lastErr = err
		if !retry.Transient(err) {
			return nil, err
		}
		if attempt == transferAttempts {
			break
		}
		log.Warn("fetch aborted, reconnecting source", "attempt", attempt, "err", err)
		if err := src.Reopen(); err != nil {
			// The session has no usable connection anymore; retrying the
			// fetch on it is not an option.
			return nil, fmt.Errorf("reconnect source: %w", err)
		}
		if err := src.Select(srcBox); err != nil {
			lastErr = err
		}
	}
	return nil, lastErr
}

// transferMessage migrates a single message. It returns an error only for
// ledger failures and lost connections, which abort the mailbox; other
// protocol failures are logged and leave the message eligible for a future
// run.
func (r *Runner) transferMessage(src, dst Session, srcBox, dstBox, archiveBox string, uid imapv2.UID, msg *model.Message, log *slog.Logger) error {
	key := model.UIDKey(uid)

	done, err := r.ledger.IsTransferred(srcBox, key)
	if err != nil {
		return err
	}
	if done {
		r.stats.Skipped()
		return nil
	}
	if msg == nil {
		// Expunged between search and fetch.
		r.stats.Missing()
		return nil
	}

	msgID := messageID(msg.Raw)

	if r.cfg.DryRun {
		log.Debug("dry-run transfer", "uid", key, "messageID", msgID)
		r.stats.DryRun()
		return nil
	}

	if err := r.appendMessage(dst, dstBox, msg, log); err != nil {
		if connectionLost(err) {
			return fmt.Errorf("destination connection lost: %w", err)
		}
		log.Error("append failed, leaving message in place", "uid", key, "err", err)
		r.stats.Error(err)
		return nil
	}
	r.stats.Appended()

	if err := src.Move(uid, archiveBox); err != nil {
		// Not recorded, so the next run re-attempts append and move. A
		// duplicate destination copy is possible if the append had in fact
		// succeeded; losing the message is not.
		log.Error("move to archive failed, transfer not recorded", "uid", key, "err", err)
		r.stats.Error(err)
		return nil
	}
	r.stats.Archived()

	if r.backup != nil {
		if err := r.backup.Write(srcBox, msg); err != nil {
			log.Warn("backup write failed", "uid", key, "err", err)
		}
	}

	return r.ledger.RecordTransfer(model.TransferRecord{
		SrcMailbox:    srcBox,
		SrcUID:        key,
		DstMailbox:    dstBox,
		MessageID:     msgID,
		TransferredAt: time.Now(),
	})
}

// appendMessage appends one message, reconnecting the destination and
// re-ensuring the mailbox between attempts (a fresh session starts
// unselected).
func (r *Runner) appendMessage(dst Session, dstBox string, msg *model.Message, log *slog.Logger) error {
	var lastErr error
	for attempt := 1; attempt <= transferAttempts; attempt++ {
		err := dst.Append(dstBox, msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry.Transient(err) {
			return err
		}
		if attempt == transferAttempts {
			break
		}
		log.Warn("append aborted, reconnecting destination", "attempt", attempt, "err", err)
		if err := dst.Reopen(); err != nil {
			return fmt.Errorf("reconnect destination: %w", err)
		}
		if !dst.EnsureSelected(dstBox) {
			lastErr = fmt.Errorf("destination mailbox %s not selectable after reconnect", dstBox)
		}
	}
	return lastErr
}

// connectionLost reports whether err stems from a failed re-dial, meaning the
// session it belongs to has no live connection to retry on.
func connectionLost(err error) bool {
	var connErr *imap.ConnectionError
	return errors.As(err, &connErr)
}

func batches(uids []imapv2.UID, size int) [][]imapv2.UID {
	if size <= 0 {
		size = 50
	}
	var out [][]imapv2.UID
	for start := 0; start < len(uids); start += size {
		end := start + size
		if end > len(uids) {
			end = len(uids)
		}
		out = append(out, uids[start:end])
	}
	return out
}
