package email

import "context"

// Provider delivers a rendered message to one or more recipients.
type Provider interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

// NoOpProvider is used when SMTP is not configured.
type NoOpProvider struct{}

func (NoOpProvider) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	return nil
}
