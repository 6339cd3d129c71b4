package mailtext

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"
)

// Outgoing describes a plain text message to render as RFC 5322.
type Outgoing struct {
	From     string
	FromName string
	To       string
	ReplyTo  string
	Subject  string
	Text     string
	Date     time.Time
}

// Build renders an Outgoing message as raw bytes suitable for APIs that
// accept a full MIME message.
func Build(o Outgoing) ([]byte, error) {
	var h mail.Header
	if o.Date.IsZero() {
		o.Date = time.Now()
	}
	h.SetDate(o.Date)
	h.SetAddressList("From", []*mail.Address{{Name: o.FromName, Address: o.From}})
	h.SetAddressList("To", []*mail.Address{{Address: o.To}})
	if o.ReplyTo != "" {
		h.SetAddressList("Reply-To", []*mail.Address{{Address: o.ReplyTo}})
	}
	h.SetSubject(o.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create writer: %w", err)
	}
	if _, err := io.WriteString(w, o.Text); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
