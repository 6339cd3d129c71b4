// Package mailtext parses, cleans and builds the email messages exchanged
// with users.
package mailtext

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// Message is the subset of an inbound email the journal cares about.
type Message struct {
	MessageID string
	From      string
	To        []string
	ReplyTo   []string
	Subject   string
	Date      time.Time
	Text      string
	HTML      string
}

// Body prefers the plain text part and falls back to the HTML one.
func (m *Message) Body() string {
	if strings.TrimSpace(m.Text) != "" {
		return m.Text
	}
	return m.HTML
}

// Recipients lists Reply-To addresses before To addresses.
func (m *Message) Recipients() []string {
	out := make([]string, 0, len(m.ReplyTo)+len(m.To))
	out = append(out, m.ReplyTo...)
	return append(out, m.To...)
}

// Parse reads a raw RFC 5322 message. Unknown charsets are tolerated.
func Parse(r io.Reader) (*Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("read message: %w", err)
	}
	defer mr.Close()

	msg := &Message{}
	h := mr.Header
	msg.MessageID, _ = h.MessageID()
	msg.Subject, _ = h.Subject()
	msg.Date, _ = h.Date()
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].Address
	}
	msg.To = addresses(h, "To")
	msg.ReplyTo = addresses(h, "Reply-To")

	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			return nil, fmt.Errorf("read part: %w", err)
		}

		ih, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := ih.ContentType()
		b, err := io.ReadAll(p.Body)
		if err != nil {
			return nil, fmt.Errorf("read part body: %w", err)
		}
		switch contentType {
		case "text/plain", "":
			if msg.Text == "" {
				msg.Text = string(b)
			}
		case "text/html":
			if msg.HTML == "" {
				msg.HTML = string(b)
			}
		}
	}
	return msg, nil
}

func addresses(h mail.Header, key string) []string {
	list, err := h.AddressList(key)
	if err != nil {
		// Fall back to the raw value for addresses the strict parser rejects.
		raw := strings.TrimSpace(h.Get(key))
		if raw == "" {
			return nil
		}
		if dec, err := new(mime.WordDecoder).DecodeHeader(raw); err == nil {
			raw = dec
		}
		var out []string
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if i := strings.LastIndex(part, "<"); i >= 0 {
				part = strings.TrimSuffix(part[i+1:], ">")
			}
			if part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Address)
	}
	return out
}
