package notification

import (
	"context"
	"fmt"
	"log"

	"github.com/resend/resend-go/v2"
)

type EmailService struct {
	client    *resend.Client
	fromEmail string
}

// NewEmailService wraps the Resend API. With an empty key the service is
// created in disabled mode and SendEmail becomes a logged no-op, so local
// environments work without credentials.
func NewEmailService(apiKey, fromEmail string) *EmailService {
	var client *resend.Client
	if apiKey != "" {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
	}
}

func (s *EmailService) SendEmail(ctx context.Context, to, subject, body string) error {
	if s.client == nil {
		log.Printf("Email (disabled): To %s, Subject: %s", to, subject)
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
