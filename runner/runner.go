package runner

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mrehanahmed/IMAP-Migrate/backup"
	"github.com/mrehanahmed/IMAP-Migrate/config"
	"github.com/mrehanahmed/IMAP-Migrate/imap"
	"github.com/mrehanahmed/IMAP-Migrate/ledger"
	"github.com/mrehanahmed/IMAP-Migrate/model"
	"github.com/mrehanahmed/IMAP-Migrate/stats"
)

// Runner drives one migration run: it lists the source mailboxes, applies the
// exclude set and name mapping, and runs the batch pipeline once per mailbox,
// sequentially. A failure in one mailbox never stops the next.
type Runner struct {
	cfg      config.Config
	ledger   *ledger.Ledger
	logger   *slog.Logger
	stats    *stats.Collector
	mapping  map[string]string
	excludes map[string]struct{}
	backup   *backup.Archive
	progress Progress

	// dial and sleep are replaceable in tests.
	dial  func(model.Endpoint) (Session, error)
	sleep func(time.Duration)
}

func New(cfg config.Config, led *ledger.Ledger, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		ledger: led,
		logger: logger,
		stats:  stats.NewCollector(),
		dial: func(endpoint model.Endpoint) (Session, error) {
			return imap.Open(endpoint, logger)
		},
		sleep: time.Sleep,
	}
}

// SetMapping installs the optional source→destination mailbox name mapping.
func (r *Runner) SetMapping(mapping map[string]string) { r.mapping = mapping }

// SetExcludes installs the set of source mailboxes to skip.
func (r *Runner) SetExcludes(excludes map[string]struct{}) { r.excludes = excludes }

// SetProgress installs the batch-boundary progress callback.
func (r *Runner) SetProgress(progress Progress) { r.progress = progress }

// SetBackup installs the optional local mbox archive.
func (r *Runner) SetBackup(archive *backup.Archive) { r.backup = archive }

// Summary returns the counters accumulated so far.
func (r *Runner) Summary() stats.Summary { return r.stats.Snapshot() }

// Run migrates all non-excluded source mailboxes. Only a failure of the
// initial listing connection aborts the whole run.
func (r *Runner) Run() error {
	listing, err := r.dial(r.cfg.Source)
	if err != nil {
		return fmt.Errorf("source listing connection: %w", err)
	}
	mailboxes, err := listing.Mailboxes()
	listing.Logout()
	if err != nil {
		return fmt.Errorf("list source mailboxes: %w", err)
	}

	var runID string
	if !r.cfg.DryRun {
		runID, err = r.ledger.BeginRun()
		if err != nil {
			return err
		}
	}

	for _, name := range mailboxes {
		if _, skip := r.excludes[name]; skip {
			r.logger.Info("skipping excluded mailbox", "mailbox", name)
			continue
		}
		dstName := name
		if mapped, ok := r.mapping[name]; ok && mapped != "" {
			dstName = mapped
		}

		r.stats.Mailbox()
		if err := r.migrateMailbox(name, dstName); err != nil {
			r.stats.Error(err)
			r.logger.Error("mailbox migration failed", "mailbox", name, "err", err)
		}
	}

	summary := r.stats.Snapshot()
	if !r.cfg.DryRun {
		if err := r.ledger.FinishRun(runID, summary); err != nil {
			r.logger.Warn("could not record run history", "err", err)
		}
	}
	r.logger.Info("migration complete", summary.LogAttrs()...)
	return nil
}
