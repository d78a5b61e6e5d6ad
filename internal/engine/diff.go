package engine

import (
	"github.com/gitify-app/gitify-sub003/internal/model"
)

// NewNotifications returns the notifications present in next but absent from
// prev. Accounts are matched by UUID and notifications by thread ID within
// their account, since thread IDs are only unique per host. The result
// preserves next's ordering.
//
// An account with no entry in prev (just added, or first poll) contributes
// all of its notifications.
func NewNotifications(prev, next []model.AccountNotifications) []model.Notification {
	prevIDs := make(map[string]map[string]bool, len(prev))
	for _, acc := range prev {
		ids := make(map[string]bool, len(acc.Notifications))
		for _, n := range acc.Notifications {
			ids[n.ID] = true
		}
		prevIDs[acc.Account.UUID()] = ids
	}

	var fresh []model.Notification
	for _, acc := range next {
		seen := prevIDs[acc.Account.UUID()]
		for _, n := range acc.Notifications {
			if !seen[n.ID] {
				fresh = append(fresh, n)
			}
		}
	}
	return fresh
}
