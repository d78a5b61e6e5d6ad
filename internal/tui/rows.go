package tui

import (
	"fmt"

	"github.com/gitify-app/gitify-sub003/internal/format"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

type rowKind int

const (
	rowAccount rowKind = iota
	rowRepo
	rowNotification
)

// row is one rendered line of the inbox. Only notification rows are
// selectable.
type row struct {
	kind         rowKind
	account      model.Account
	accountError error
	repo         string
	notification model.Notification
}

func (r row) selectable() bool {
	return r.kind == rowNotification
}

// buildRows flattens a snapshot into display rows: an account header, then
// each repository with its notifications, preserving fetch order throughout.
func buildRows(snapshot []model.AccountNotifications) []row {
	var rows []row
	for _, acc := range snapshot {
		rows = append(rows, row{
			kind:         rowAccount,
			account:      acc.Account,
			accountError: acc.Error,
		})
		if acc.Error != nil {
			continue
		}

		var repoOrder []string
		byRepo := map[string][]model.Notification{}
		for _, n := range acc.Notifications {
			name := n.Repository.FullName
			if _, seen := byRepo[name]; !seen {
				repoOrder = append(repoOrder, name)
			}
			byRepo[name] = append(byRepo[name], n)
		}

		for _, name := range repoOrder {
			rows = append(rows, row{kind: rowRepo, account: acc.Account, repo: name})
			for _, n := range byRepo[name] {
				rows = append(rows, row{kind: rowNotification, account: acc.Account, notification: n})
			}
		}
	}
	return rows
}

func (r row) render(width int, selected bool) string {
	switch r.kind {
	case rowAccount:
		label := fmt.Sprintf("%s@%s", r.account.User.Login, r.account.Hostname)
		if r.accountError != nil {
			return accountStyle.Render(label) + " " + errorStyle.Render(r.accountError.Error())
		}
		return accountStyle.Render(label)

	case rowRepo:
		return "  " + repoStyle.Render(r.repo)

	default:
		n := r.notification
		glyph := format.SubjectGlyph(n.Subject.Type)
		line := fmt.Sprintf("    %s %s", glyph, n.Subject.Title)
		if label := format.StateLabel(n.Subject.State); label != "" {
			line += " " + stateStyle.Render("["+label+"]")
		}
		line += " " + metaStyle.Render(format.Age(n.UpdatedAt))
		if n.Subject.User != nil {
			line += " " + metaStyle.Render("@"+n.Subject.User.Login)
		}

		if width > 0 {
			line = format.TruncateToWidth(line, width)
		}
		if selected {
			return selectedStyle.Render(format.StripAnsi(line))
		}
		if !n.Unread {
			return readStyle.Render(format.StripAnsi(line))
		}
		return titleStyle.Render(line)
	}
}
