package model

import (
	"net"
	"strconv"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"
)

// Endpoint describes one IMAP account. It is immutable for the duration of a
// run and passed by value into the session layer.
type Endpoint struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	UseTLS             bool   `mapstructure:"tls"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// Addr returns host:port, applying the protocol default port when none is set.
func (e Endpoint) Addr() string {
	port := e.Port
	if port == 0 {
		if e.UseTLS {
			port = 993
		} else {
			port = 143
		}
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(port))
}

// Message is one email as fetched from the source mailbox.
type Message struct {
	UID          imapv2.UID
	Raw          []byte
	Flags        []imapv2.Flag
	InternalDate time.Time
}

// TransferRecord is one row of the migration ledger. The (SrcMailbox, SrcUID)
// pair is unique; a colliding write replaces the prior record.
type TransferRecord struct {
	SrcMailbox string
	SrcUID     string
	DstMailbox string
	// DstUID is reserved for a future destination-verify pass and is never
	// populated by the pipeline.
	DstUID        string
	MessageID     string
	TransferredAt time.Time
}

// UIDKey renders a message UID the way the ledger stores it.
func UIDKey(uid imapv2.UID) string {
	return strconv.FormatUint(uint64(uid), 10)
}
