package engine

import (
	"testing"

	"github.com/gitify-app/gitify-sub003/internal/model"
)

func account(login string, id int64) model.Account {
	return model.Account{
		Hostname: "github.com",
		Method:   model.MethodPersonalAccessToken,
		Platform: model.PlatformCloud,
		User:     model.User{ID: id, Login: login},
	}
}

func notifications(acc model.Account, ids ...string) model.AccountNotifications {
	out := model.AccountNotifications{Account: acc}
	for _, id := range ids {
		out.Notifications = append(out.Notifications, model.Notification{
			ID:      id,
			Account: acc,
			Unread:  true,
		})
	}
	return out
}

func newIDs(t *testing.T, fresh []model.Notification) []string {
	t.Helper()
	var ids []string
	for _, n := range fresh {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestNewNotificationsEmptyPrevious(t *testing.T) {
	acc := account("octocat", 1)
	next := []model.AccountNotifications{notifications(acc, "1", "2")}

	fresh := NewNotifications(nil, next)
	if got := newIDs(t, fresh); len(got) != 2 {
		t.Errorf("fresh = %v, want all of next", got)
	}
}

func TestNewNotificationsOnlyUnseen(t *testing.T) {
	acc := account("octocat", 1)
	prev := []model.AccountNotifications{notifications(acc, "1", "2")}
	next := []model.AccountNotifications{notifications(acc, "2", "3", "4")}

	fresh := NewNotifications(prev, next)
	got := newIDs(t, fresh)
	if len(got) != 2 || got[0] != "3" || got[1] != "4" {
		t.Errorf("fresh = %v, want [3 4]", got)
	}
}

func TestNewNotificationsNothingNew(t *testing.T) {
	acc := account("octocat", 1)
	prev := []model.AccountNotifications{notifications(acc, "1", "2")}
	next := []model.AccountNotifications{notifications(acc, "1")}

	if fresh := NewNotifications(prev, next); len(fresh) != 0 {
		t.Errorf("fresh = %v, want none", newIDs(t, fresh))
	}
}

func TestNewNotificationsScopedPerAccount(t *testing.T) {
	accA := account("octocat", 1)
	accB := account("hubot", 2)

	// Thread IDs collide across hosts; the same ID on another account is
	// still new for that account.
	prev := []model.AccountNotifications{notifications(accA, "1")}
	next := []model.AccountNotifications{
		notifications(accA, "1"),
		notifications(accB, "1"),
	}

	fresh := NewNotifications(prev, next)
	if len(fresh) != 1 {
		t.Fatalf("fresh = %v, want one", newIDs(t, fresh))
	}
	if fresh[0].Account.UUID() != accB.UUID() {
		t.Errorf("fresh notification belongs to %s, want %s", fresh[0].Account.User.Login, accB.User.Login)
	}
}

func TestNewNotificationsNewAccount(t *testing.T) {
	accA := account("octocat", 1)
	accB := account("hubot", 2)

	prev := []model.AccountNotifications{notifications(accA, "1")}
	next := []model.AccountNotifications{
		notifications(accA, "1"),
		notifications(accB, "7", "8"),
	}

	fresh := NewNotifications(prev, next)
	if got := newIDs(t, fresh); len(got) != 2 || got[0] != "7" || got[1] != "8" {
		t.Errorf("fresh = %v, want [7 8]", got)
	}
}

func TestNewNotificationsPreservesOrder(t *testing.T) {
	acc := account("octocat", 1)
	prev := []model.AccountNotifications{notifications(acc, "2")}
	next := []model.AccountNotifications{notifications(acc, "5", "2", "9")}

	fresh := NewNotifications(prev, next)
	if got := newIDs(t, fresh); len(got) != 2 || got[0] != "5" || got[1] != "9" {
		t.Errorf("fresh = %v, want [5 9] in fetch order", got)
	}
}
