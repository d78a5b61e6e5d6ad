// Package tray abstracts the status-icon surface that mirrors the unread
// count after every snapshot change.
package tray

import (
	"fmt"

	"github.com/gitify-app/gitify-sub003/internal/log"
)

// Updater receives unread-count changes. Implementations must tolerate being
// called after every poll, including with an unchanged count.
type Updater interface {
	// UpdateIcon reflects the unread count on the status icon. A negative
	// count means an error state.
	UpdateIcon(unread int)
	// UpdateTitle sets the status icon title text.
	UpdateTitle(title string)
}

// LogUpdater logs count changes instead of driving a real status icon.
type LogUpdater struct {
	lastUnread int
	lastTitle  string
	started    bool
}

func (u *LogUpdater) UpdateIcon(unread int) {
	if u.started && unread == u.lastUnread {
		return
	}
	u.started = true
	u.lastUnread = unread
	if unread < 0 {
		log.Debug("tray icon", "state", "error")
		return
	}
	log.Debug("tray icon", "unread", unread)
}

func (u *LogUpdater) UpdateTitle(title string) {
	if title == u.lastTitle {
		return
	}
	u.lastTitle = title
	log.Debug("tray title", "title", title)
}

// Title renders the unread count the way the status icon displays it.
func Title(unread int) string {
	if unread <= 0 {
		return ""
	}
	return fmt.Sprintf("%d", unread)
}
