package imap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"dabble-backend/pkg/logger"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// Handler consumes one raw RFC 5322 message.
type Handler func(ctx context.Context, raw io.Reader) error

// permanent is implemented by handler errors that retrying cannot fix, such as
// a reply with an invalid token. Those messages are marked seen like successes.
type permanent interface {
	Permanent() bool
}

type Config struct {
	Addr     string
	Username string
	Password string
	Mailbox  string
	Interval time.Duration
}

type fetched struct {
	uid uint32
	raw []byte
}

type mailbox interface {
	Unseen() ([]fetched, error)
	MarkSeen(uids []uint32) error
	Close() error
}

// Poller periodically drains unseen messages from an IMAP mailbox.
type Poller struct {
	cfg     Config
	handler Handler
	log     *logger.Logger
	dial    func(ctx context.Context) (mailbox, error)

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewPoller(cfg Config, handler Handler, log *logger.Logger) *Poller {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	p := &Poller{
		cfg:      cfg,
		handler:  handler,
		log:      log.With("service", "IMAPPoller"),
		stopChan: make(chan struct{}),
	}
	p.dial = p.dialTLS
	return p
}

func (p *Poller) Start() {
	p.log.Info("IMAP poller started", "mailbox", p.cfg.Mailbox, "interval", p.cfg.Interval.String())
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.poll(ctx)
	for {
		select {
		case <-ticker.C:
			p.poll(ctx)
		case <-p.stopChan:
			p.log.Info("IMAP poller stopped")
			return
		}
	}
}

func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
}

func (p *Poller) poll(ctx context.Context) {
	n, err := p.FetchOnce(ctx)
	if err != nil {
		p.log.Warn("IMAP poll failed", "error", err)
		return
	}
	if n > 0 {
		p.log.Info("IMAP poll processed messages", "count", n)
	}
}

// FetchOnce hands every unseen message to the handler and returns how many
// were marked seen. Messages whose handler failed transiently stay unseen.
func (p *Poller) FetchOnce(ctx context.Context) (int, error) {
	mb, err := p.dial(ctx)
	if err != nil {
		return 0, err
	}
	defer mb.Close()

	msgs, err := mb.Unseen()
	if err != nil {
		return 0, err
	}

	done := make([]uint32, 0, len(msgs))
	for _, m := range msgs {
		if ctx.Err() != nil {
			break
		}
		err := p.handler(ctx, bytes.NewReader(m.raw))
		if err != nil {
			var perm permanent
			if !errors.As(err, &perm) || !perm.Permanent() {
				p.log.Warn("Inbound message will be retried", "uid", m.uid, "error", err)
				continue
			}
			p.log.Info("Inbound message rejected", "uid", m.uid, "error", err)
		}
		done = append(done, m.uid)
	}

	if len(done) == 0 {
		return 0, nil
	}
	if err := mb.MarkSeen(done); err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}
	return len(done), nil
}

func (p *Poller) dialTLS(ctx context.Context) (mailbox, error) {
	c, err := client.DialTLS(p.cfg.Addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", p.cfg.Addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		c.Timeout = time.Until(deadline)
	}
	if err := c.Login(p.cfg.Username, p.cfg.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("login: %w", err)
	}
	if _, err := c.Select(p.cfg.Mailbox, false); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("select %s: %w", p.cfg.Mailbox, err)
	}
	return &clientMailbox{c: c}, nil
}

type clientMailbox struct {
	c *client.Client
}

func (m *clientMailbox) Unseen() ([]fetched, error) {
	criteria := goimap.NewSearchCriteria()
	criteria.WithoutFlags = []string{goimap.SeenFlag}
	uids, err := m.c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(goimap.SeqSet)
	seqset.AddNum(uids...)
	section := &goimap.BodySectionName{Peek: true}
	items := []goimap.FetchItem{goimap.FetchUid, section.FetchItem()}

	messages := make(chan *goimap.Message, 10)
	fetchDone := make(chan error, 1)
	go func() {
		fetchDone <- m.c.UidFetch(seqset, items, messages)
	}()

	var out []fetched
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			continue
		}
		out = append(out, fetched{uid: msg.Uid, raw: raw})
	}
	if err := <-fetchDone; err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return out, nil
}

func (m *clientMailbox) MarkSeen(uids []uint32) error {
	seqset := new(goimap.SeqSet)
	seqset.AddNum(uids...)
	flags := []interface{}{goimap.SeenFlag}
	return m.c.UidStore(seqset, goimap.FormatFlagsOp(goimap.AddFlags, true), flags, nil)
}

func (m *clientMailbox) Close() error {
	return m.c.Logout()
}
