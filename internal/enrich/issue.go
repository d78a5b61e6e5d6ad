package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gitify-app/gitify-sub003/internal/api"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

type issueHandler struct{}

func (issueHandler) Type() model.SubjectType { return model.SubjectIssue }
func (issueHandler) Batchable() bool         { return true }

func (issueHandler) EnrichLocal(*model.Notification) {}

type issueNode struct {
	Number      int            `json:"number"`
	State       string         `json:"state"`
	StateReason string         `json:"stateReason"`
	URL         string         `json:"url"`
	Author      *actorNode     `json:"author"`
	Comments    commentsNode   `json:"comments"`
	Labels      labelsNode     `json:"labels"`
	Milestone   *milestoneNode `json:"milestone"`
}

const issueByNumberQuery = `query FetchIssueByNumber($owner: String!, $name: String!, $number: Int!, $lastComments: Int, $firstLabels: Int) {
  repository(owner: $owner, name: $name) {
    issue(number: $number) {
      ...IssueDetails
    }
  }
}

` + authorFragment + "\n\n" + milestoneFragment + "\n\n" + issueFragment

func (h issueHandler) Enrich(ctx context.Context, c *api.Client, n *model.Notification) error {
	number, err := NumberFromURL(n.Subject.URL)
	if err != nil {
		return err
	}

	data, err := c.GraphQL(ctx, issueByNumberQuery, map[string]any{
		"owner":        n.Repository.Owner,
		"name":         n.Repository.Name,
		"number":       number,
		"lastComments": lastComments,
		"firstLabels":  firstLabels,
	})
	if err != nil {
		return err
	}

	var payload struct {
		Repository repositoryNode `json:"repository"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to decode issue payload: %w", err)
	}
	return h.ApplyNode(n, json.RawMessage(mustRaw(payload.Repository)))
}

func (issueHandler) ApplyNode(n *model.Notification, node json.RawMessage) error {
	var repo repositoryNode
	if err := json.Unmarshal(node, &repo); err != nil {
		return fmt.Errorf("failed to decode repository node: %w", err)
	}
	if len(repo.Issue) == 0 || string(repo.Issue) == "null" {
		return fmt.Errorf("issue missing from node payload")
	}

	var issue issueNode
	if err := json.Unmarshal(repo.Issue, &issue); err != nil {
		return fmt.Errorf("failed to decode issue node: %w", err)
	}

	n.Subject.Number = issue.Number
	n.Subject.State = issueState(issue.State, issue.StateReason)
	n.Subject.Comments = issue.Comments.TotalCount
	n.Subject.Labels = issue.Labels.names()
	n.Subject.Milestone = issue.Milestone.toMilestone()

	latest := issue.Comments.latest()
	if latest != nil {
		n.Subject.User = pickAuthor(latest.Author, issue.Author)
		n.Subject.HTMLURL = latest.URL
	} else {
		n.Subject.User = pickAuthor(issue.Author)
		n.Subject.HTMLURL = issue.URL
	}
	return nil
}

// issueState prefers the close reason over the raw open/closed state, so a
// completed issue reads "completed" rather than "closed".
func issueState(state, stateReason string) model.StateType {
	if stateReason != "" {
		return model.StateType(strings.ToLower(stateReason))
	}
	return model.StateType(strings.ToLower(state))
}

// mustRaw re-marshals a decoded node back to raw JSON so single-subject
// fetches reuse the batched apply path. Marshalling a just-decoded value
// cannot fail.
func mustRaw(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
