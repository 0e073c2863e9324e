// Package notifier fans shortcode announcements out to notification backends.
package notifier

import (
	"context"
	"fmt"
)

// Message describes one shortcode announcement
type Message struct {
	Shortcode   string
	URL         string
	Filename    string
	Description string
}

// Notifier is a notification backend. Each backend remembers the message
// it posted per shortcode so it can later edit or delete it. Edit and
// Delete for a shortcode without a recorded message are no-ops.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg Message) (handle string, err error)
	Edit(ctx context.Context, msg Message) error
	Delete(ctx context.Context, shortcode string) error
}

// Description is the announcement text for a new shortcode
func Description(shortcode, url, filename string) string {
	return fmt.Sprintf("Shortcode %q created for %s, and is now available at %s", shortcode, filename, url)
}

// NewMessage builds a Message with the standard description
func NewMessage(shortcode, url, filename string) Message {
	return Message{
		Shortcode:   shortcode,
		URL:         url,
		Filename:    filename,
		Description: Description(shortcode, url, filename),
	}
}
