package sitemail

import "fmt"

// ContactSubmission represents one parsed contact form POST.
// A nil field means the form did not carry it at all.
type ContactSubmission struct {
	Name    *string
	Email   *string
	Message *string
}

// OutboundMessage represents an email handed to a Mailer.
type OutboundMessage struct {
	Subject    string   `json:"subject"`
	Sender     string   `json:"sender"`     // owner address, for instance hello@example.com
	Recipients []string `json:"recipients"` // always exactly the owner address
	Body       string   `json:"body"`       // plain text
}

// DeliveryResult is the relay's answer to a delivery call.
type DeliveryResult struct {
	Error string `json:"error,omitempty"`
}

// NewOutboundMessage composes the owner notification for a submission.
// Absent fields are rendered as placeholder; present but empty fields stay empty.
func NewOutboundMessage(s ContactSubmission, owner, placeholder string) OutboundMessage {
	return OutboundMessage{
		Subject:    ContactSubject,
		Sender:     owner,
		Recipients: []string{owner},
		Body:       s.Body(placeholder),
	}
}

// Body formats the submission as the three-line notification text.
func (s ContactSubmission) Body(placeholder string) string {
	return fmt.Sprintf("Name: %s\nEmail: %s\nMessage: %s",
		field(s.Name, placeholder),
		field(s.Email, placeholder),
		field(s.Message, placeholder),
	)
}

func field(v *string, placeholder string) string {
	if v == nil {
		return placeholder
	}
	return *v
}
