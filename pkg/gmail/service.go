package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"dabble-backend/pkg/mailer"
	"dabble-backend/pkg/mailtext"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Service sends prompt emails from a single Gmail account authorised with a
// long-lived refresh token.
type Service struct {
	clientID     string
	clientSecret string
	refreshToken string
	fromEmail    string
	fromName     string

	newAPI func(ctx context.Context) (*gmail.Service, error)
}

func NewService(clientID, clientSecret, refreshToken, fromEmail, fromName string) (*Service, error) {
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("gmail sender requires GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GMAIL_REFRESH_TOKEN")
	}
	s := &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		fromEmail:    fromEmail,
		fromName:     fromName,
	}
	s.newAPI = s.GetGmailService
	return s, nil
}

// GetGmailService creates a Gmail client that refreshes its access token on demand.
func (s *Service) GetGmailService(ctx context.Context) (*gmail.Service, error) {
	token := &oauth2.Token{
		RefreshToken: s.refreshToken,
		TokenType:    "Bearer",
		// Forces a refresh on first use.
		Expiry: time.Now(),
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}

	client := oauth2.NewClient(ctx, config.TokenSource(ctx, token))
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// Send implements mailer.Sender.
func (s *Service) Send(ctx context.Context, msg mailer.Message) error {
	raw, err := mailtext.Build(mailtext.Outgoing{
		From:     s.fromEmail,
		FromName: s.fromName,
		To:       msg.To,
		ReplyTo:  msg.ReplyTo,
		Subject:  msg.Subject,
		Text:     msg.Text,
	})
	if err != nil {
		return &mailer.DeliveryError{Provider: "gmail", Err: err}
	}

	srv, err := s.newAPI(ctx)
	if err != nil {
		return &mailer.DeliveryError{Provider: "gmail", Err: err}
	}

	_, err = srv.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return &mailer.DeliveryError{Provider: "gmail", Err: fmt.Errorf("unable to send message: %w", err)}
	}
	return nil
}
