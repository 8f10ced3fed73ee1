package main

import (
	"context"
	"fmt"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// EmailAlerter delivers alert notifications as transactional emails through
// the Brevo API.
type EmailAlerter struct {
	client *brevo.APIClient
	from   string
	to     string
}

func NewEmailAlerter(apiKey, from, to string) (*EmailAlerter, error) {
	if apiKey == "" || to == "" {
		return nil, ErrAlerterNotConfigured
	}

	configuration := brevo.NewConfiguration()
	configuration.AddDefaultHeader("api-key", apiKey)

	return &EmailAlerter{
		client: brevo.NewAPIClient(configuration),
		from:   from,
		to:     to,
	}, nil
}

func (e *EmailAlerter) Send(ctx context.Context, alert AlertMessage) error {
	var subject string
	switch alert.Kind {
	case AlertKindRecovery:
		subject = fmt.Sprintf("Recovered: %s is healthy again", alert.Target)
	default:
		subject = fmt.Sprintf("Outage detected: %s", alert.Target)
	}

	body := fmt.Sprintf(`Network monitor alert

Host: %s
Event: %s
Time: %s
Packet Loss: %.1f%%

%s
`, alert.Target, alert.Kind, alert.OccurredAt.Format(TimeKeyLayout), alert.LossPercent, alert.Reason)

	email := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  "Kestrel Monitor",
			Email: e.from,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: e.to},
		},
		Subject:     subject,
		HtmlContent: fmt.Sprintf("<pre>%s</pre>", body),
		TextContent: body,
	}

	if _, _, err := e.client.TransactionalEmailsApi.SendTransacEmail(ctx, email); err != nil {
		return fmt.Errorf("%w: sending email via Brevo: %v", ErrAlerterDropped, err)
	}
	return nil
}
