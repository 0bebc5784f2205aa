package runner

import (
	imapv2 "github.com/emersion/go-imap/v2"

	"github.com/mrehanahmed/IMAP-Migrate/imap"
	"github.com/mrehanahmed/IMAP-Migrate/model"
)

// Session is the protocol boundary the pipeline needs from an endpoint: list,
// select/create, search, fetch, append, move and a graceful logout, plus
// Reopen to replace a dead connection in place.
type Session interface {
	Mailboxes() ([]string, error)
	Select(name string) error
	EnsureSelected(name string) bool
	SearchAll() ([]imapv2.UID, error)
	FetchBatch(uids []imapv2.UID) (map[imapv2.UID]*model.Message, error)
	Append(mailbox string, msg *model.Message) error
	Move(uid imapv2.UID, mailbox string) error
	Reopen() error
	Logout()
}

var _ Session = (*imap.Session)(nil)

// Progress is invoked by the pipeline at batch boundaries. Implementations
// must not block; they run on the pipeline's own goroutine.
type Progress interface {
	Start(mailbox string, total, alreadyDone int)
	Advance(mailbox string, n int)
	Done(mailbox string)
}
