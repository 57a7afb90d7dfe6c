// Package email sends security notifications through Resend. Delivery
// failures are reported to the caller but must never block the auth path.
package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

type Notifier struct {
	client *resend.Client
	from   string
}

func NewNotifier(apiKey, from string) *Notifier {
	return &Notifier{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// NotifyLockout tells the account owner their account was locked after
// repeated failed logins.
func (n *Notifier) NotifyLockout(ctx context.Context, to, username string) error {
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{to},
		Subject: "Your account has been locked",
		Html: fmt.Sprintf(
			"<p>Hello %s,</p><p>Your account was locked after repeated failed login attempts. "+
				"Contact an administrator to unlock it.</p>", username),
	}

	if _, err := n.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send lockout notification: %w", err)
	}
	return nil
}

// NotifyPasswordChanged confirms a password change and the forced logout
// of every active session.
func (n *Notifier) NotifyPasswordChanged(ctx context.Context, to, username string) error {
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{to},
		Subject: "Your password was changed",
		Html: fmt.Sprintf(
			"<p>Hello %s,</p><p>Your password was changed and all active sessions were signed out. "+
				"If this wasn't you, contact an administrator immediately.</p>", username),
	}

	if _, err := n.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send password change notification: %w", err)
	}
	return nil
}
