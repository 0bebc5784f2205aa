package runner

import (
	"bytes"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

// messageID extracts the Message-ID header, best effort: a malformed or
// id-less message yields an empty string, which is not an error.
func messageID(raw []byte) string {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && entity == nil {
		return ""
	}
	header := mail.Header{Header: entity.Header}
	if id, err := header.MessageID(); err == nil && id != "" {
		return id
	}
	return strings.Trim(entity.Header.Get("Message-Id"), "<> \t")
}
