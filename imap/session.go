package imap

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/mrehanahmed/IMAP-Migrate/model"
)

// reopenCooldown is the fixed delay before re-dialing a broken session, to
// avoid hammering a remote endpoint that just dropped the connection.
const reopenCooldown = 3 * time.Second

// ConnectionError wraps a failure to establish or authenticate a session.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("imap connection to %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Session wraps one live IMAP connection plus the currently selected mailbox.
// A Session is owned by a single caller and never shared across goroutines.
type Session struct {
	client   *imapclient.Client
	endpoint model.Endpoint
	selected string
	logger   *slog.Logger

	// sleep is replaceable in tests; nil means time.Sleep.
	sleep func(time.Duration)
}

// Open authenticates against the endpoint and returns a ready session. There
// is no retry at this layer; callers decide what a failure means.
func Open(endpoint model.Endpoint, logger *slog.Logger) (*Session, error) {
	client, err := dial(endpoint)
	if err != nil {
		return nil, err
	}
	logger.Debug("imap connection established",
		"address", endpoint.Addr(), "user", endpoint.Username, "tls", endpoint.UseTLS)
	return &Session{client: client, endpoint: endpoint, logger: logger}, nil
}

func dial(endpoint model.Endpoint) (*imapclient.Client, error) {
	addr := endpoint.Addr()
	options := &imapclient.Options{}

	var (
		client *imapclient.Client
		err    error
	)
	if endpoint.UseTLS {
		options.TLSConfig = &tls.Config{
			ServerName:         endpoint.Host,
			InsecureSkipVerify: endpoint.InsecureSkipVerify,
		}
		client, err = imapclient.DialTLS(addr, options)
	} else {
		client, err = imapclient.DialInsecure(addr, options)
	}
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}

	if err := client.Login(endpoint.Username, endpoint.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, &ConnectionError{Addr: addr, Err: fmt.Errorf("login: %w", err)}
	}

	return client, nil
}

// Reopen replaces the underlying connection with a fresh one: best-effort
// logout of the stale connection, a short cooldown, then a new dial and login.
// Any mailbox selection is cleared.
func (s *Session) Reopen() error {
	if s.client != nil {
		if err := s.client.Logout().Wait(); err != nil {
			s.logger.Debug("logout of stale session failed", "err", err)
		}
		_ = s.client.Close()
		s.client = nil
	}
	s.selected = ""

	sleep := s.sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	sleep(reopenCooldown)

	client, err := dial(s.endpoint)
	if err != nil {
		return err
	}
	s.client = client
	s.logger.Debug("imap session reopened", "address", s.endpoint.Addr())
	return nil
}

// Mailboxes enumerates all mailbox names visible to the account, in the order
// the endpoint returns them.
func (s *Session) Mailboxes() ([]string, error) {
	list, err := s.client.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("list mailboxes: %w", err)
	}
	names := make([]string, 0, len(list))
	for _, mbox := range list {
		names = append(names, mbox.Mailbox)
	}
	return names, nil
}

// Select selects the mailbox read-write.
func (s *Session) Select(name string) error {
	if _, err := s.client.Select(name, nil).Wait(); err != nil {
		s.selected = ""
		return fmt.Errorf("select %s: %w", name, err)
	}
	s.selected = name
	return nil
}

// EnsureSelected selects the mailbox, creating it first if the select fails.
// Returns false if the mailbox can neither be selected nor created; callers
// must treat that as "skip this mailbox", not abort the run.
func (s *Session) EnsureSelected(name string) bool {
	if err := s.Select(name); err == nil {
		return true
	}

	if err := s.client.Create(name, nil).Wait(); err != nil {
		var respErr *imapv2.Error
		if !errors.As(err, &respErr) || respErr.Code != imapv2.ResponseCodeAlreadyExists {
			s.logger.Warn("could not create mailbox", "mailbox", name, "err", err)
		}
	}

	if err := s.Select(name); err != nil {
		s.logger.Warn("could not select mailbox", "mailbox", name, "err", err)
		return false
	}
	return true
}

// SearchAll returns the UIDs of every message in the selected mailbox.
func (s *Session) SearchAll() ([]imapv2.UID, error) {
	data, err := s.client.UIDSearch(&imapv2.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("uid search: %w", err)
	}
	return data.AllUIDs(), nil
}

// FetchBatch fetches raw body, flags and internal date for the given UIDs.
// Messages expunged between search and fetch are simply absent from the result.
func (s *Session) FetchBatch(uids []imapv2.UID) (map[imapv2.UID]*model.Message, error) {
	fetched := make(map[imapv2.UID]*model.Message, len(uids))
	if len(uids) == 0 {
		return fetched, nil
	}

	section := &imapv2.FetchItemBodySection{Peek: true}
	options := &imapv2.FetchOptions{
		UID:          true,
		Flags:        true,
		InternalDate: true,
		BodySection:  []*imapv2.FetchItemBodySection{section},
	}

	buffers, err := s.client.Fetch(imapv2.UIDSetNum(uids...), options).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetch batch: %w", err)
	}

	for _, buf := range buffers {
		raw := buf.FindBodySection(section)
		if raw == nil {
			continue
		}
		fetched[buf.UID] = &model.Message{
			UID:          buf.UID,
			Raw:          raw,
			Flags:        buf.Flags,
			InternalDate: buf.InternalDate,
		}
	}
	return fetched, nil
}

// Append writes the raw message with its original flags and internal date to
// the named mailbox on this session's endpoint.
func (s *Session) Append(mailbox string, msg *model.Message) error {
	options := &imapv2.AppendOptions{Flags: appendableFlags(msg.Flags)}
	if !msg.InternalDate.IsZero() {
		options.Time = msg.InternalDate
	}

	cmd := s.client.Append(mailbox, int64(len(msg.Raw)), options)
	if _, err := cmd.Write(msg.Raw); err != nil {
		_ = cmd.Close()
		return fmt.Errorf("append write: %w", err)
	}
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("append close: %w", err)
	}
	if _, err := cmd.Wait(); err != nil {
		return fmt.Errorf("append: %w", err)
	}
	return nil
}

// Move moves one message from the selected mailbox to the named mailbox.
func (s *Session) Move(uid imapv2.UID, mailbox string) error {
	if _, err := s.client.Move(imapv2.UIDSetNum(uid), mailbox).Wait(); err != nil {
		return fmt.Errorf("move uid %d to %s: %w", uid, mailbox, err)
	}
	return nil
}

// Logout closes the session gracefully. Errors are logged and discarded; the
// session must not be used afterwards.
func (s *Session) Logout() {
	if s.client == nil {
		return
	}
	if err := s.client.Logout().Wait(); err != nil {
		s.logger.Debug("imap logout failed", "err", err)
	}
	_ = s.client.Close()
	s.client = nil
	s.selected = ""
}

// appendableFlags drops \Recent, which servers refuse in APPEND.
func appendableFlags(flags []imapv2.Flag) []imapv2.Flag {
	out := make([]imapv2.Flag, 0, len(flags))
	for _, f := range flags {
		if f == imapv2.Flag("\\Recent") {
			continue
		}
		out = append(out, f)
	}
	return out
}
