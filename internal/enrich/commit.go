package enrich

import (
	"context"
	"encoding/json"

	"github.com/gitify-app/gitify-sub003/internal/api"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

// restUser is the user object embedded in REST payloads.
type restUser struct {
	Login     string `json:"login"`
	HTMLURL   string `json:"html_url"`
	AvatarURL string `json:"avatar_url"`
	Type      string `json:"type"`
}

func (u *restUser) toUser() *model.SubjectUser {
	if u == nil || u.Login == "" {
		return nil
	}
	return &model.SubjectUser{
		Login:     u.Login,
		HTMLURL:   u.HTMLURL,
		AvatarURL: u.AvatarURL,
		Type:      u.Type,
	}
}

type commitHandler struct{}

func (commitHandler) Type() model.SubjectType { return model.SubjectCommit }
func (commitHandler) Batchable() bool         { return false }

func (commitHandler) EnrichLocal(*model.Notification) {}

// Enrich attributes the commit notification to a user. The latest comment,
// when present, identifies who triggered the notification; otherwise the
// commit author does. Commit payloads carry "author", comment payloads "user".
func (commitHandler) Enrich(ctx context.Context, c *api.Client, n *model.Notification) error {
	target := n.Subject.LatestCommentURL
	if target == "" {
		target = n.Subject.URL
	}
	if target == "" {
		return nil
	}

	var payload struct {
		Author  *restUser `json:"author"`
		User    *restUser `json:"user"`
		HTMLURL string    `json:"html_url"`
	}
	if err := c.GetJSON(ctx, target, &payload); err != nil {
		return err
	}

	if user := payload.User.toUser(); user != nil {
		n.Subject.User = user
	} else {
		n.Subject.User = payload.Author.toUser()
	}
	n.Subject.HTMLURL = payload.HTMLURL
	return nil
}

func (commitHandler) ApplyNode(*model.Notification, json.RawMessage) error { return nil }
