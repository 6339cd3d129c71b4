package usecase

import (
	"context"
	"fmt"
	"strings"

	authdomain "dabble-backend/internal/auth/domain"
	"dabble-backend/internal/journal/domain"
	"dabble-backend/pkg/mailer"
	"dabble-backend/pkg/replytoken"
)

const (
	PromptEmailSubject   = "Your journaling questions for today"
	FollowUpEmailSubject = "A follow-up question"
)

// PromptMailer renders prompts as email with a signed reply-to address.
type PromptMailer struct {
	sender     mailer.Sender
	signer     *replytoken.Signer
	mailDomain string
}

func NewPromptMailer(sender mailer.Sender, signer *replytoken.Signer, mailDomain string) *PromptMailer {
	return &PromptMailer{sender: sender, signer: signer, mailDomain: mailDomain}
}

// Compose builds the message for a prompt without sending it.
func (m *PromptMailer) Compose(user *authdomain.User, prompt *domain.Prompt) (mailer.Message, error) {
	token, err := m.signer.Sign(user.ID, prompt.ID)
	if err != nil {
		return mailer.Message{}, fmt.Errorf("sign reply token: %w", err)
	}

	msg := mailer.Message{
		To:      user.Email,
		ReplyTo: replytoken.Address(token, m.mailDomain),
	}
	if prompt.Source == domain.PromptSourceAIFollowUp {
		msg.Subject = FollowUpEmailSubject
		msg.Text = FollowUpEmailBody(prompt)
	} else {
		msg.Subject = PromptEmailSubject
		msg.Text = PromptEmailBody(prompt)
	}
	return msg, nil
}

func (m *PromptMailer) Send(ctx context.Context, user *authdomain.User, prompt *domain.Prompt) (mailer.Message, error) {
	msg, err := m.Compose(user, prompt)
	if err != nil {
		return msg, err
	}
	return msg, m.sender.Send(ctx, msg)
}

func PromptEmailBody(p *domain.Prompt) string {
	var b strings.Builder
	for i, q := range p.Questions() {
		fmt.Fprintf(&b, "Question %d: %s\n\n", i+1, q)
	}
	b.WriteString("Reply to this email to create a journal entry.")
	return b.String()
}

func FollowUpEmailBody(p *domain.Prompt) string {
	return p.Question1 + "\n\nReply to this email to add to your journal entry."
}
