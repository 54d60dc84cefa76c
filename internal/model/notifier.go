package model

import "context"

// Notification is one rendered message handed to the notification sender.
// The sweep does not know or care how it is transported.
type Notification struct {
	To         string
	Subject    string
	HTMLBody   string
	Attachment string
}

// Notifier delivers notifications to recipients.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}
