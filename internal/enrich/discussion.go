package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gitify-app/gitify-sub003/internal/api"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

// searchLookback widens the discussion title search window: the notification
// timestamp can trail the discussion's own update by a couple of hours.
const searchLookback = 2 * time.Hour

type discussionHandler struct{}

func (discussionHandler) Type() model.SubjectType { return model.SubjectDiscussion }
func (discussionHandler) Batchable() bool         { return true }

func (discussionHandler) EnrichLocal(*model.Notification) {}

type discussionCommentNode struct {
	commentNode
	Replies struct {
		Nodes []commentNode `json:"nodes"`
	} `json:"replies"`
}

type discussionNode struct {
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	StateReason string     `json:"stateReason"`
	IsAnswered  *bool      `json:"isAnswered"`
	Author      *actorNode `json:"author"`
	Comments    struct {
		TotalCount int                     `json:"totalCount"`
		Nodes      []discussionCommentNode `json:"nodes"`
	} `json:"comments"`
	Labels labelsNode `json:"labels"`

	// Only populated by the search fallback.
	ViewerSubscription string `json:"viewerSubscription"`
}

const discussionByNumberQuery = `query FetchDiscussionByNumber($owner: String!, $name: String!, $number: Int!, $lastThreadedComments: Int, $lastReplies: Int, $firstLabels: Int, $includeIsAnswered: Boolean!) {
  repository(owner: $owner, name: $name) {
    discussion(number: $number) {
      ...DiscussionDetails
    }
  }
}

` + authorFragment + "\n\n" + discussionFragment

const discussionSearchQuery = `query SearchDiscussions($queryString: String!, $firstDiscussions: Int, $lastThreadedComments: Int, $lastReplies: Int, $firstLabels: Int, $includeIsAnswered: Boolean!) {
  search(query: $queryString, type: DISCUSSION, first: $firstDiscussions) {
    nodes {
      ... on Discussion {
        viewerSubscription
        ...DiscussionDetails
      }
    }
  }
}

` + authorFragment + "\n\n" + discussionFragment

func (h discussionHandler) Enrich(ctx context.Context, c *api.Client, n *model.Notification) error {
	includeIsAnswered := c.Account().IsAnsweredDiscussionsSupported()

	if number, err := NumberFromURL(n.Subject.URL); err == nil {
		data, err := c.GraphQL(ctx, discussionByNumberQuery, map[string]any{
			"owner":                n.Repository.Owner,
			"name":                 n.Repository.Name,
			"number":               number,
			"lastThreadedComments": lastThreadedComments,
			"lastReplies":          lastReplies,
			"firstLabels":          firstLabels,
			"includeIsAnswered":    includeIsAnswered,
		})
		if err != nil {
			return err
		}
		var payload struct {
			Repository repositoryNode `json:"repository"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("failed to decode discussion payload: %w", err)
		}
		return h.ApplyNode(n, json.RawMessage(mustRaw(payload.Repository)))
	}

	// Older notification payloads carry no discussion URL, so fall back to a
	// title search scoped to the repository and update window.
	discussion, err := searchDiscussion(ctx, c, n, includeIsAnswered)
	if err != nil {
		return err
	}
	if discussion == nil {
		return fmt.Errorf("no discussion matched title %q in %s", n.Subject.Title, n.Repository.FullName)
	}
	applyDiscussion(n, discussion)
	return nil
}

func searchDiscussion(ctx context.Context, c *api.Client, n *model.Notification, includeIsAnswered bool) (*discussionNode, error) {
	since := n.UpdatedAt.Add(-searchLookback).UTC().Format(time.RFC3339)
	queryString := fmt.Sprintf("%s in:title repo:%s updated:>%s",
		n.Subject.Title, n.Repository.FullName, since)

	data, err := c.GraphQL(ctx, discussionSearchQuery, map[string]any{
		"queryString":          queryString,
		"firstDiscussions":     10,
		"lastThreadedComments": lastThreadedComments,
		"lastReplies":          lastReplies,
		"firstLabels":          firstLabels,
		"includeIsAnswered":    includeIsAnswered,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Search struct {
			Nodes []discussionNode `json:"nodes"`
		} `json:"search"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode discussion search payload: %w", err)
	}

	var fallback *discussionNode
	for i := range payload.Search.Nodes {
		d := &payload.Search.Nodes[i]
		if d.Title != n.Subject.Title {
			continue
		}
		// Multiple discussions can share a title; the one the viewer is
		// subscribed to is the one that produced the notification.
		if d.ViewerSubscription == "SUBSCRIBED" {
			return d, nil
		}
		if fallback == nil {
			fallback = d
		}
	}
	return fallback, nil
}

func (discussionHandler) ApplyNode(n *model.Notification, node json.RawMessage) error {
	var repo repositoryNode
	if err := json.Unmarshal(node, &repo); err != nil {
		return fmt.Errorf("failed to decode repository node: %w", err)
	}
	if len(repo.Discussion) == 0 || string(repo.Discussion) == "null" {
		return fmt.Errorf("discussion missing from node payload")
	}

	var discussion discussionNode
	if err := json.Unmarshal(repo.Discussion, &discussion); err != nil {
		return fmt.Errorf("failed to decode discussion node: %w", err)
	}
	applyDiscussion(n, &discussion)
	return nil
}

func applyDiscussion(n *model.Notification, d *discussionNode) {
	n.Subject.Number = d.Number
	n.Subject.State = discussionState(d)
	n.Subject.Comments = d.Comments.TotalCount
	n.Subject.Labels = d.Labels.names()

	if latest := closestComment(d, n.UpdatedAt); latest != nil {
		n.Subject.User = pickAuthor(latest.Author, d.Author)
		n.Subject.HTMLURL = latest.URL
	} else {
		n.Subject.User = pickAuthor(d.Author)
		n.Subject.HTMLURL = d.URL
	}
}

func discussionState(d *discussionNode) model.StateType {
	if d.IsAnswered != nil && *d.IsAnswered {
		return model.StateAnswered
	}
	if d.StateReason != "" {
		return model.StateType(strings.ToLower(d.StateReason))
	}
	return model.StateOpen
}

// closestComment finds the comment or reply whose creation time is nearest to
// the notification update, which is the activity that raised the notification.
func closestComment(d *discussionNode, updatedAt time.Time) *commentNode {
	var closest *commentNode
	var closestDelta time.Duration

	consider := func(c *commentNode) {
		delta := updatedAt.Sub(c.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if closest == nil || delta < closestDelta {
			closest = c
			closestDelta = delta
		}
	}

	for i := range d.Comments.Nodes {
		comment := &d.Comments.Nodes[i]
		consider(&comment.commentNode)
		for j := range comment.Replies.Nodes {
			consider(&comment.Replies.Nodes[j])
		}
	}
	return closest
}
