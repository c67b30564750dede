package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/resend/resend-go/v3"
)

type DepositCredited struct {
	To        string
	FullName  string
	Reference string
	Amount    string
	Balance   string
}

type Sender interface {
	SendDepositCredited(ctx context.Context, msg DepositCredited) error
}

type resendSender struct {
	client *resend.Client
	from   string
}

// New returns a Resend-backed sender, or a no-op sender when no API key is set.
func New(apiKey, from string) Sender {
	if strings.TrimSpace(apiKey) == "" {
		return Noop{}
	}
	return &resendSender{
		client: resend.NewClient(strings.TrimSpace(apiKey)),
		from:   from,
	}
}

func (s *resendSender) SendDepositCredited(ctx context.Context, msg DepositCredited) error {
	if strings.TrimSpace(msg.To) == "" {
		return nil
	}

	name := strings.TrimSpace(msg.FullName)
	if name == "" {
		name = "there"
	}

	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your deposit <strong>%s</strong> of <strong>%s</strong> has been confirmed.</p>
<p>Your wallet balance is now <strong>%s</strong>.</p>`,
		html.EscapeString(name),
		html.EscapeString(msg.Reference),
		html.EscapeString(msg.Amount),
		html.EscapeString(msg.Balance),
	)

	_, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: "Deposit confirmed " + msg.Reference,
		Html:    body,
	})
	if err != nil {
		return fmt.Errorf("send deposit credited email: %w", err)
	}
	return nil
}

type Noop struct{}

func (Noop) SendDepositCredited(context.Context, DepositCredited) error { return nil }
