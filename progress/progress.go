package progress

import (
	"github.com/pterm/pterm"
)

// Bar renders a per-mailbox progress bar, advanced by the pipeline at batch
// boundaries. It runs no goroutine of its own.
type Bar struct {
	pb      *pterm.ProgressbarPrinter
	enabled bool
}

// New creates a progress bar that is active only at the "info" log level, so
// debug runs keep clean log output.
func New(logLevel string) *Bar {
	return &Bar{enabled: logLevel == "info"}
}

// Start opens the bar for one mailbox. Every message is advanced past exactly
// once per run, resumed ones included, so the counter starts at zero; the
// count a prior run already transferred is shown as a status line instead.
func (b *Bar) Start(mailbox string, total, alreadyDone int) {
	if !b.enabled {
		return
	}

	if alreadyDone > 0 {
		pterm.Info.Printf("%s: %d of %d already transferred\n", mailbox, alreadyDone, total)
	}
	pb, _ := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle("Migrating " + mailbox).
		Start()
	b.pb = pb
}

// Advance moves the bar forward by n messages.
func (b *Bar) Advance(mailbox string, n int) {
	if b.pb == nil {
		return
	}
	b.pb.Add(n)
}

// Done finalizes the bar for this mailbox. Safe to call on every exit path.
func (b *Bar) Done(mailbox string) {
	if b.pb == nil {
		return
	}
	_, _ = b.pb.Stop()
	b.pb = nil
}
