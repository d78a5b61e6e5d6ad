package enrich

import (
	"context"
	"encoding/json"

	"github.com/gitify-app/gitify-sub003/internal/api"
	"github.com/gitify-app/gitify-sub003/internal/log"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

// EnrichNotifications resolves extended subject state for a page of
// notifications belonging to one account. Batchable subjects (issues, pull
// requests, discussions) share a single merged GraphQL call; title-derived
// state is filled in locally; everything else keeps its base subject.
//
// Enrichment is best-effort: a failed or partial response degrades the
// affected notifications to their base subject instead of failing the fetch.
// The input slice is enriched in place and returned.
func EnrichNotifications(ctx context.Context, c *api.Client, notifications []model.Notification) []model.Notification {
	type target struct {
		index   int
		alias   string
		handler Handler
	}

	builder := NewMergeQueryBuilder(c.Account().IsAnsweredDiscussionsSupported())
	var targets []target

	for i := range notifications {
		n := &notifications[i]
		h := HandlerFor(n.Subject.Type)
		h.EnrichLocal(n)

		if !h.Batchable() || n.Subject.URL == "" {
			continue
		}
		number, err := NumberFromURL(n.Subject.URL)
		if err != nil {
			log.Debug("skipping unbatchable subject", "id", n.ID, "error", err)
			continue
		}
		alias := builder.AddNode(n.Repository.Owner, n.Repository.Name, number, n.Subject.Type)
		targets = append(targets, target{index: i, alias: alias, handler: h})
	}

	if builder.Len() == 0 {
		return notifications
	}

	data, err := c.GraphQL(ctx, builder.Query(), builder.Variables())
	if err != nil {
		log.Warn("batched enrichment failed",
			"account", c.Account().User.Login,
			"count", builder.Len(),
			"error", err,
		)
		return notifications
	}

	var nodes map[string]json.RawMessage
	if err := json.Unmarshal(data, &nodes); err != nil {
		log.Warn("failed to decode batched enrichment payload", "error", err)
		return notifications
	}

	for _, t := range targets {
		node, ok := nodes[t.alias]
		if !ok || len(node) == 0 || string(node) == "null" {
			continue
		}
		n := &notifications[t.index]
		if err := t.handler.ApplyNode(n, node); err != nil {
			log.Debug("failed to apply enrichment node",
				"id", n.ID,
				"type", n.Subject.Type,
				"error", err,
			)
		}
	}

	return notifications
}

// EnrichOne fully resolves a single notification's subject, issuing whatever
// requests its type needs. Used for on-demand detail views.
func EnrichOne(ctx context.Context, c *api.Client, n *model.Notification) error {
	h := HandlerFor(n.Subject.Type)
	h.EnrichLocal(n)
	return h.Enrich(ctx, c, n)
}
