// Package mailer delivers outbound prompt emails.
package mailer

import (
	"context"
	"fmt"

	"dabble-backend/pkg/logger"
)

type Message struct {
	To      string
	Subject string
	Text    string
	ReplyTo string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// DeliveryError wraps a failure from the underlying mail transport.
type DeliveryError struct {
	Provider string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("mail delivery via %s failed: %v", e.Provider, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// LogSender only logs what would have been sent. Used when no mail provider
// is configured.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log.With("service", "LogSender")}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("Mail delivery disabled, message not sent",
		"subject", msg.Subject,
		"reply_to_domain", domainOf(msg.ReplyTo),
	)
	return nil
}

func domainOf(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == '@' {
			return addr[i+1:]
		}
	}
	return ""
}
