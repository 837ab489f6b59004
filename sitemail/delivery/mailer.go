// Package delivery implements the mail transports used to notify the site
// owner. Every transport reports failure as a *sitemail.MailDeliveryError.
package delivery

import (
	"context"

	"github.com/sparksolution/sitemail/sitemail"
)

// Mailer delivers one composed message, blocking until the transport has
// accepted or rejected it.
type Mailer interface {
	Deliver(ctx context.Context, msg sitemail.OutboundMessage) error
}

// MailerFunc adapts a function into a Mailer.
type MailerFunc func(ctx context.Context, msg sitemail.OutboundMessage) error

// Deliver calls f.
func (f MailerFunc) Deliver(ctx context.Context, msg sitemail.OutboundMessage) error {
	return f(ctx, msg)
}
