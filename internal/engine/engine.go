// Package engine is the polling core: it fetches every account's inbox in
// parallel, enriches subjects, diffs against the previous snapshot, raises
// triggers for genuinely new notifications, and serves immutable snapshots to
// consumers.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gitify-app/gitify-sub003/config"
	"github.com/gitify-app/gitify-sub003/internal/api"
	"github.com/gitify-app/gitify-sub003/internal/auth"
	"github.com/gitify-app/gitify-sub003/internal/enrich"
	"github.com/gitify-app/gitify-sub003/internal/log"
	"github.com/gitify-app/gitify-sub003/internal/model"
	"github.com/gitify-app/gitify-sub003/internal/notify"
	"github.com/gitify-app/gitify-sub003/internal/tray"
)

// Status is the aggregate state of the most recent refresh.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	// StatusError means every account's fetch failed. Partial failures
	// surface per account and still report success.
	StatusError Status = "error"
)

// Engine coordinates refresh cycles across all registered accounts.
type Engine struct {
	cfg      *config.Config
	registry *auth.Registry
	sink     notify.Sink
	tray     tray.Updater

	// newClient is swapped out in tests.
	newClient func(model.Account) (*api.Client, error)

	refreshing atomic.Bool

	mu          sync.RWMutex
	snapshot    []model.AccountNotifications
	status      Status
	globalError error

	updates chan struct{}
}

// New creates an engine over the given account registry.
func New(cfg *config.Config, registry *auth.Registry, sink notify.Sink, trayUpdater tray.Updater) *Engine {
	return &Engine{
		cfg:       cfg,
		registry:  registry,
		sink:      sink,
		tray:      trayUpdater,
		newClient: api.NewClient,
		status:    StatusIdle,
		updates:   make(chan struct{}, 1),
	}
}

// Updates signals after every snapshot change. The channel carries no data;
// consumers re-read Snapshot.
func (e *Engine) Updates() <-chan struct{} {
	return e.updates
}

// Snapshot returns a copy of the current per-account notification state, in
// account registration order.
func (e *Engine) Snapshot() []model.AccountNotifications {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return copySnapshot(e.snapshot)
}

// Status returns the aggregate status of the most recent refresh.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// GlobalError returns the shared failure when every account failed for the
// same reason, nil otherwise. Mixed failure kinds stay per-account.
func (e *Engine) GlobalError() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.globalError
}

// Run polls until ctx is cancelled: one refresh immediately, then one per
// fetch interval.
func (e *Engine) Run(ctx context.Context) error {
	e.Refresh(ctx)

	ticker := time.NewTicker(e.cfg.Settings.FetchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.Refresh(ctx)
		}
	}
}

// Refresh performs one full fetch cycle. A refresh that starts while another
// is in flight is dropped, not queued; the running cycle's results stand.
func (e *Engine) Refresh(ctx context.Context) {
	if !e.refreshing.CompareAndSwap(false, true) {
		log.Debug("refresh already in flight, skipping")
		return
	}
	defer e.refreshing.Store(false)

	accounts := e.registry.Accounts()
	if len(accounts) == 0 {
		e.publish(nil, StatusIdle, nil)
		return
	}

	e.mu.Lock()
	e.status = StatusLoading
	prev := copySnapshot(e.snapshot)
	e.mu.Unlock()

	start := time.Now()
	settings := e.cfg.Settings

	results := make([]model.AccountNotifications, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	for i, account := range accounts {
		g.Go(func() error {
			notifications, err := e.fetchAccount(gctx, account, settings)
			results[i] = model.AccountNotifications{
				Account:       account,
				Notifications: notifications,
				Error:         err,
			}
			// Account failures are isolated; one bad token must not take
			// down the other accounts' results.
			return nil
		})
	}
	g.Wait()

	// An account removed mid-flight must not reappear through a stale result.
	next := results[:0:0]
	for _, r := range results {
		if e.registry.Has(r.Account.UUID()) {
			next = append(next, r)
		}
	}

	status, globalErr := aggregateStatus(next)

	fresh := NewNotifications(prev, next)
	if len(fresh) > 0 {
		e.raiseTriggers(fresh, settings)
	}

	log.Info("refresh complete",
		"accounts", len(next),
		"notifications", model.NotificationCount(next),
		"new", len(fresh),
		"status", status,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	e.publish(next, status, globalErr)
}

func (e *Engine) fetchAccount(ctx context.Context, account model.Account, settings config.Settings) ([]model.Notification, error) {
	client, err := e.newClient(account)
	if err != nil {
		return nil, api.WrapError("create client", account.User.Login, err)
	}

	notifications, err := client.ListNotifications(ctx, api.ListOptions{
		Participating: settings.Participating,
		All:           settings.FetchReadNotifications,
		FetchAll:      settings.FetchAllNotifications,
	})
	if err != nil {
		return nil, api.WrapError("list notifications", account.User.Login, err)
	}

	if settings.DetailedNotifications {
		notifications = enrich.EnrichNotifications(ctx, client, notifications)
	}
	return notifications, nil
}

// aggregateStatus derives the cycle status. Error is reserved for the case
// where no account produced results; the global error additionally requires
// every account to have failed the same way.
func aggregateStatus(snapshot []model.AccountNotifications) (Status, error) {
	failures := 0
	kinds := map[api.ErrorKind]bool{}
	var firstErr error
	for _, acc := range snapshot {
		if acc.Error != nil {
			failures++
			kinds[api.KindOf(acc.Error)] = true
			if firstErr == nil {
				firstErr = acc.Error
			}
		}
	}

	if failures == 0 || failures < len(snapshot) {
		return StatusSuccess, nil
	}
	if len(kinds) == 1 {
		return StatusError, firstErr
	}
	return StatusError, nil
}

func (e *Engine) raiseTriggers(fresh []model.Notification, settings config.Settings) {
	if settings.ShowNotifications {
		title, body, url := notificationSummary(fresh)
		e.sink.RaiseNativeNotification(title, body, url)
	}
	if settings.PlaySound {
		e.sink.RaiseSound()
	}
}

// notificationSummary formats the desktop notification. A single new
// notification shows its repository and subject; more than one collapses into
// a count.
func notificationSummary(fresh []model.Notification) (title, body, url string) {
	if len(fresh) == 1 {
		n := fresh[0]
		return n.Repository.FullName, n.Subject.Title, n.Repository.HTMLURL
	}
	return "Gitify", fmt.Sprintf("You have %d notifications.", len(fresh)), ""
}

// publish installs a new snapshot and wakes consumers.
func (e *Engine) publish(snapshot []model.AccountNotifications, status Status, globalErr error) {
	e.mu.Lock()
	e.snapshot = snapshot
	e.status = status
	e.globalError = globalErr
	unread := model.UnreadNotificationCount(snapshot)
	e.mu.Unlock()

	if status == StatusError {
		e.tray.UpdateIcon(-1)
	} else {
		e.tray.UpdateIcon(unread)
	}
	e.tray.UpdateTitle(tray.Title(unread))

	select {
	case e.updates <- struct{}{}:
	default:
	}
}

func copySnapshot(snapshot []model.AccountNotifications) []model.AccountNotifications {
	if snapshot == nil {
		return nil
	}
	out := make([]model.AccountNotifications, len(snapshot))
	for i, acc := range snapshot {
		out[i] = acc
		out[i].Notifications = make([]model.Notification, len(acc.Notifications))
		copy(out[i].Notifications, acc.Notifications)
	}
	return out
}
