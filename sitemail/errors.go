package sitemail

// MailDeliveryError is returned by every Mailer when a message could not be
// handed to the mail system. Its text is the transport's own description.
type MailDeliveryError struct {
	Err error
}

func (e *MailDeliveryError) Error() string {
	if e.Err == nil {
		return "mail delivery failed"
	}
	return e.Err.Error()
}

func (e *MailDeliveryError) Unwrap() error {
	return e.Err
}

// DeliveryFailed wraps err as a *MailDeliveryError, leaving nil and already
// wrapped errors untouched.
func DeliveryFailed(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*MailDeliveryError); ok {
		return err
	}
	return &MailDeliveryError{Err: err}
}
