package engine

import (
	"context"
	"errors"

	"github.com/gitify-app/gitify-sub003/internal/api"
	"github.com/gitify-app/gitify-sub003/internal/log"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

// MarkAsRead marks notifications as read on their hosts. Notifications may
// span accounts; each is mutated through its own account's client. Successes
// are reflected in the snapshot immediately, failures leave their
// notification untouched.
func (e *Engine) MarkAsRead(ctx context.Context, notifications []model.Notification) error {
	return e.mutate(ctx, notifications, func(ctx context.Context, client *api.Client, n model.Notification) error {
		return client.MarkThreadAsRead(ctx, n.ID)
	})
}

// MarkAsDone removes notifications from their hosts' inboxes. On hosts that
// predate the done state the thread is marked read instead, which is the
// closest available effect.
func (e *Engine) MarkAsDone(ctx context.Context, notifications []model.Notification) error {
	return e.mutate(ctx, notifications, func(ctx context.Context, client *api.Client, n model.Notification) error {
		if !n.Account.IsMarkAsDoneSupported() {
			log.Debug("host does not support mark as done, marking read",
				"host", n.Account.Hostname, "id", n.ID)
			return client.MarkThreadAsRead(ctx, n.ID)
		}
		return client.MarkThreadAsDone(ctx, n.ID)
	})
}

// Unsubscribe mutes the notifications' threads, then marks each successfully
// muted thread done (or read, per settings). The follow-up only runs after
// the unsubscribe succeeded, so a failed mute leaves the notification fully
// intact.
func (e *Engine) Unsubscribe(ctx context.Context, notifications []model.Notification) error {
	markAsDone := e.cfg.Settings.MarkAsDoneOnUnsubscribe
	return e.mutate(ctx, notifications, func(ctx context.Context, client *api.Client, n model.Notification) error {
		if err := client.IgnoreThreadSubscription(ctx, n.ID); err != nil {
			return err
		}
		if markAsDone && n.Account.IsMarkAsDoneSupported() {
			return client.MarkThreadAsDone(ctx, n.ID)
		}
		return client.MarkThreadAsRead(ctx, n.ID)
	})
}

// MarkRepositoryAsRead marks every notification of one repository, for one
// account, as read in a single call.
func (e *Engine) MarkRepositoryAsRead(ctx context.Context, account model.Account, repo model.Repository) error {
	client, err := e.newClient(account)
	if err != nil {
		return api.WrapError("create client", account.User.Login, err)
	}

	if err := client.MarkRepositoryNotificationsAsRead(ctx, repo.Owner, repo.Name); err != nil {
		return api.WrapError("mark repository as read", account.User.Login, err)
	}

	e.mu.Lock()
	for i := range e.snapshot {
		if e.snapshot[i].Account.UUID() != account.UUID() {
			continue
		}
		kept := e.snapshot[i].Notifications[:0]
		for _, n := range e.snapshot[i].Notifications {
			if n.Repository.FullName == repo.FullName {
				if e.keepMutated() {
					n.Unread = false
					kept = append(kept, n)
				}
				continue
			}
			kept = append(kept, n)
		}
		e.snapshot[i].Notifications = kept
	}
	status := e.status
	globalErr := e.globalError
	snapshot := e.snapshot
	e.mu.Unlock()

	e.publish(snapshot, status, globalErr)
	return nil
}

// mutate applies op to each notification through its account's client and
// removes (or marks read) every notification whose op succeeded. Failures are
// collected and joined; one failed thread does not stop the rest.
func (e *Engine) mutate(ctx context.Context, notifications []model.Notification, op func(context.Context, *api.Client, model.Notification) error) error {
	clients := map[string]*api.Client{}
	var errs []error
	var succeeded []model.Notification

	for _, n := range notifications {
		accountUUID := n.Account.UUID()
		client, ok := clients[accountUUID]
		if !ok {
			var err error
			client, err = e.newClient(n.Account)
			if err != nil {
				errs = append(errs, api.WrapError("create client", n.Account.User.Login, err))
				continue
			}
			clients[accountUUID] = client
		}

		if err := op(ctx, client, n); err != nil {
			errs = append(errs, api.WrapError("mutate thread", n.Account.User.Login, err))
			continue
		}
		succeeded = append(succeeded, n)
	}

	if len(succeeded) > 0 {
		e.removeFromSnapshot(succeeded)
	}
	return errors.Join(errs...)
}

// keepMutated reports whether acted-on notifications stay in the list marked
// read rather than disappearing. They stay when the user either delays state
// changes or fetches read notifications anyway.
func (e *Engine) keepMutated() bool {
	settings := e.cfg.Settings
	return settings.DelayNotificationState || settings.FetchReadNotifications
}

func (e *Engine) removeFromSnapshot(notifications []model.Notification) {
	byAccount := map[string]map[string]bool{}
	for _, n := range notifications {
		accountUUID := n.Account.UUID()
		if byAccount[accountUUID] == nil {
			byAccount[accountUUID] = map[string]bool{}
		}
		byAccount[accountUUID][n.ID] = true
	}

	keep := e.keepMutated()

	e.mu.Lock()
	for i := range e.snapshot {
		ids := byAccount[e.snapshot[i].Account.UUID()]
		if ids == nil {
			continue
		}
		kept := e.snapshot[i].Notifications[:0]
		for _, n := range e.snapshot[i].Notifications {
			if ids[n.ID] {
				if keep {
					n.Unread = false
					kept = append(kept, n)
				}
				continue
			}
			kept = append(kept, n)
		}
		e.snapshot[i].Notifications = kept
	}
	status := e.status
	globalErr := e.globalError
	snapshot := e.snapshot
	e.mu.Unlock()

	e.publish(snapshot, status, globalErr)
}
