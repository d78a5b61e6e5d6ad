package api

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/gitify-app/gitify-sub003/internal/log"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

const notificationsPerPage = 50

// ListOptions configures a notification listing.
type ListOptions struct {
	// Participating limits results to threads the user participates in.
	Participating bool
	// All includes read notifications.
	All bool
	// FetchAll follows pagination until the last page. A failure on any page
	// aborts the whole listing; partial results are never returned.
	FetchAll bool
}

// ListNotifications fetches the account's notification inbox, sorted by the
// API's most-recently-updated-first order.
func (c *Client) ListNotifications(ctx context.Context, opts ListOptions) ([]model.Notification, error) {
	listOpts := &github.NotificationListOptions{
		All:           opts.All,
		Participating: opts.Participating,
		ListOptions: github.ListOptions{
			PerPage: notificationsPerPage,
		},
	}

	var all []model.Notification
	for {
		raw, resp, err := c.rest.Activity.ListNotifications(ctx, listOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to list notifications: %w", err)
		}

		for _, n := range raw {
			all = append(all, c.convertNotification(n))
		}

		if !opts.FetchAll || resp.NextPage == 0 {
			break
		}
		listOpts.Page = resp.NextPage
	}

	log.Debug("listed notifications",
		"account", c.account.User.Login,
		"host", c.account.Hostname,
		"count", len(all),
	)

	return all, nil
}

// HeadNotifications performs a HEAD request against the notifications
// endpoint and returns the X-OAuth-Scopes response header. Used to validate
// connectivity and token scopes.
func (c *Client) HeadNotifications(ctx context.Context) (string, error) {
	req, err := c.rest.NewRequest("HEAD", "notifications", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.rest.Do(ctx, req, nil)
	if err != nil {
		return "", fmt.Errorf("failed to probe notifications endpoint: %w", err)
	}
	return resp.Header.Get("X-OAuth-Scopes"), nil
}

// MarkThreadAsRead marks a notification thread as read, equivalent to
// clicking it in the GitHub inbox.
func (c *Client) MarkThreadAsRead(ctx context.Context, threadID string) error {
	_, err := c.rest.Activity.MarkThreadRead(ctx, threadID)
	if err != nil {
		return fmt.Errorf("failed to mark thread %s as read: %w", threadID, err)
	}
	return nil
}

// MarkThreadAsDone removes a notification thread from the inbox entirely.
// Unsupported on Enterprise Server before 3.13.
func (c *Client) MarkThreadAsDone(ctx context.Context, threadID string) error {
	req, err := c.rest.NewRequest("DELETE", fmt.Sprintf("notifications/threads/%s", threadID), nil)
	if err != nil {
		return err
	}
	if _, err := c.rest.Do(ctx, req, nil); err != nil {
		return fmt.Errorf("failed to mark thread %s as done: %w", threadID, err)
	}
	return nil
}

// IgnoreThreadSubscription mutes future notifications for a thread until the
// user comments or is mentioned again.
func (c *Client) IgnoreThreadSubscription(ctx context.Context, threadID string) error {
	sub := &github.Subscription{Ignored: github.Bool(true)}
	_, _, err := c.rest.Activity.SetThreadSubscription(ctx, threadID, sub)
	if err != nil {
		return fmt.Errorf("failed to ignore subscription for thread %s: %w", threadID, err)
	}
	return nil
}

// MarkRepositoryNotificationsAsRead marks every notification in a repository
// as read.
func (c *Client) MarkRepositoryNotificationsAsRead(ctx context.Context, owner, repo string) error {
	ts := github.Timestamp{Time: time.Now()}
	_, err := c.rest.Activity.MarkRepositoryNotificationsRead(ctx, owner, repo, ts)
	if err != nil {
		return fmt.Errorf("failed to mark repository %s/%s notifications as read: %w", owner, repo, err)
	}
	return nil
}

// GetAuthenticatedUser returns the identity behind the client's token.
func (c *Client) GetAuthenticatedUser(ctx context.Context) (model.User, error) {
	user, _, err := c.rest.Users.Get(ctx, "")
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get authenticated user: %w", err)
	}
	return model.User{
		ID:        user.GetID(),
		Login:     user.GetLogin(),
		Name:      user.GetName(),
		AvatarURL: user.GetAvatarURL(),
	}, nil
}

// GetServerVersion returns the installed Enterprise Server version, or an
// empty string for hosts that do not report one (cloud).
func (c *Client) GetServerVersion(ctx context.Context) (string, error) {
	req, err := c.rest.NewRequest("GET", "meta", nil)
	if err != nil {
		return "", err
	}
	var meta struct {
		InstalledVersion string `json:"installed_version"`
	}
	if _, err := c.rest.Do(ctx, req, &meta); err != nil {
		return "", fmt.Errorf("failed to fetch server meta: %w", err)
	}
	return meta.InstalledVersion, nil
}

// convertNotification maps a raw API notification onto the internal model.
func (c *Client) convertNotification(n *github.Notification) model.Notification {
	notification := model.Notification{
		ID:        n.GetID(),
		Account:   c.account,
		Unread:    n.GetUnread(),
		Reason:    model.Reason(n.GetReason()),
		UpdatedAt: n.GetUpdatedAt().Time,
		URL:       n.GetURL(),
	}
	if n.LastReadAt != nil {
		t := n.LastReadAt.Time
		notification.LastReadAt = &t
	}
	if notification.URL != "" {
		notification.SubscriptionURL = notification.URL + "/subscription"
	}

	if repo := n.GetRepository(); repo != nil {
		notification.Repository = model.Repository{
			ID:       repo.GetID(),
			Name:     repo.GetName(),
			FullName: repo.GetFullName(),
			Owner:    repo.GetOwner().GetLogin(),
			Private:  repo.GetPrivate(),
			HTMLURL:  repo.GetHTMLURL(),
		}
	}

	if subject := n.GetSubject(); subject != nil {
		notification.Subject = model.Subject{
			Title:            subject.GetTitle(),
			URL:              subject.GetURL(),
			LatestCommentURL: subject.GetLatestCommentURL(),
			Type:             model.SubjectType(subject.GetType()),
		}
	}

	return notification
}
