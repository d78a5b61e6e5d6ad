package enrich

import (
	"context"
	"encoding/json"

	"github.com/gitify-app/gitify-sub003/internal/api"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

type releaseHandler struct{}

func (releaseHandler) Type() model.SubjectType { return model.SubjectRelease }
func (releaseHandler) Batchable() bool         { return false }

func (releaseHandler) EnrichLocal(*model.Notification) {}

func (releaseHandler) Enrich(ctx context.Context, c *api.Client, n *model.Notification) error {
	if n.Subject.URL == "" {
		return nil
	}

	var payload struct {
		Author  *restUser `json:"author"`
		HTMLURL string    `json:"html_url"`
	}
	if err := c.GetJSON(ctx, n.Subject.URL, &payload); err != nil {
		return err
	}

	n.Subject.User = payload.Author.toUser()
	n.Subject.HTMLURL = payload.HTMLURL
	return nil
}

func (releaseHandler) ApplyNode(*model.Notification, json.RawMessage) error { return nil }
