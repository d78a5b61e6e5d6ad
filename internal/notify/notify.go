// Package notify abstracts how new-notification triggers reach the user.
package notify

import (
	"github.com/gitify-app/gitify-sub003/internal/log"
)

// Sink receives the triggers the engine raises when a poll finds
// notifications that were absent from the previous snapshot.
type Sink interface {
	// RaiseNativeNotification shows a desktop notification. url is the HTML
	// page to open when the notification is activated, and may be empty.
	RaiseNativeNotification(title, body, url string)
	// RaiseSound plays the new-notification sound.
	RaiseSound()
}

// LogSink writes triggers to the structured log. It stands in for a desktop
// integration in headless runs and tests.
type LogSink struct{}

func (LogSink) RaiseNativeNotification(title, body, url string) {
	log.Info("notification", "title", title, "body", body, "url", url)
}

func (LogSink) RaiseSound() {
	log.Debug("notification sound")
}
