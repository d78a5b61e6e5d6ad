package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gitify-app/gitify-sub003/internal/api"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

type pullRequestHandler struct{}

func (pullRequestHandler) Type() model.SubjectType { return model.SubjectPullRequest }
func (pullRequestHandler) Batchable() bool         { return true }

func (pullRequestHandler) EnrichLocal(*model.Notification) {}

type reviewNode struct {
	State  string     `json:"state"`
	Author *actorNode `json:"author"`
}

type pullRequestNode struct {
	Number         int            `json:"number"`
	State          string         `json:"state"`
	IsDraft        bool           `json:"isDraft"`
	IsInMergeQueue bool           `json:"isInMergeQueue"`
	Merged         bool           `json:"merged"`
	URL            string         `json:"url"`
	Author         *actorNode     `json:"author"`
	Comments       commentsNode   `json:"comments"`
	Labels         labelsNode     `json:"labels"`
	Milestone      *milestoneNode `json:"milestone"`
	Reviews        struct {
		Nodes []reviewNode `json:"nodes"`
	} `json:"latestOpinionatedReviews"`
	ClosingIssues struct {
		Nodes []struct {
			Number int `json:"number"`
		} `json:"nodes"`
	} `json:"closingIssuesReferences"`
}

const pullRequestByNumberQuery = `query FetchPullRequestByNumber($owner: String!, $name: String!, $number: Int!, $lastComments: Int, $firstLabels: Int, $lastReviews: Int, $firstClosingIssues: Int) {
  repository(owner: $owner, name: $name) {
    pullRequest(number: $number) {
      ...PullRequestDetails
    }
  }
}

` + authorFragment + "\n\n" + milestoneFragment + "\n\n" + pullRequestFragment

func (h pullRequestHandler) Enrich(ctx context.Context, c *api.Client, n *model.Notification) error {
	number, err := NumberFromURL(n.Subject.URL)
	if err != nil {
		return err
	}

	data, err := c.GraphQL(ctx, pullRequestByNumberQuery, map[string]any{
		"owner":              n.Repository.Owner,
		"name":               n.Repository.Name,
		"number":             number,
		"lastComments":       lastComments,
		"firstLabels":        firstLabels,
		"lastReviews":        lastReviews,
		"firstClosingIssues": firstClosingIssues,
	})
	if err != nil {
		return err
	}

	var payload struct {
		Repository repositoryNode `json:"repository"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to decode pull request payload: %w", err)
	}
	return h.ApplyNode(n, json.RawMessage(mustRaw(payload.Repository)))
}

func (pullRequestHandler) ApplyNode(n *model.Notification, node json.RawMessage) error {
	var repo repositoryNode
	if err := json.Unmarshal(node, &repo); err != nil {
		return fmt.Errorf("failed to decode repository node: %w", err)
	}
	if len(repo.PullRequest) == 0 || string(repo.PullRequest) == "null" {
		return fmt.Errorf("pull request missing from node payload")
	}

	var pr pullRequestNode
	if err := json.Unmarshal(repo.PullRequest, &pr); err != nil {
		return fmt.Errorf("failed to decode pull request node: %w", err)
	}

	n.Subject.Number = pr.Number
	n.Subject.State = pullRequestState(pr)
	n.Subject.Comments = pr.Comments.TotalCount
	n.Subject.Labels = pr.Labels.names()
	n.Subject.Milestone = pr.Milestone.toMilestone()
	n.Subject.Reviews = groupReviews(pr.Reviews.Nodes)

	for _, issue := range pr.ClosingIssues.Nodes {
		n.Subject.LinkedIssues = append(n.Subject.LinkedIssues, fmt.Sprintf("#%d", issue.Number))
	}

	latest := pr.Comments.latest()
	if latest != nil {
		n.Subject.User = pickAuthor(latest.Author, pr.Author)
		n.Subject.HTMLURL = latest.URL
	} else {
		n.Subject.User = pickAuthor(pr.Author)
		n.Subject.HTMLURL = pr.URL
	}
	return nil
}

// pullRequestState ranks the boolean flags above the raw state: a merged or
// queued pull request still reports state CLOSED/OPEN from the API.
func pullRequestState(pr pullRequestNode) model.StateType {
	switch {
	case pr.Merged:
		return model.StateMerged
	case pr.IsInMergeQueue:
		return model.StateMergeQueue
	case pr.IsDraft:
		return model.StateDraft
	default:
		return model.StateType(strings.ToLower(pr.State))
	}
}

// groupReviews keeps only the latest review per reviewer and groups reviewers
// by that review's state. Reviews arrive oldest first, so walking the list in
// reverse makes the first sighting of each reviewer their latest opinion.
// Groups come back sorted by state for stable display.
func groupReviews(reviews []reviewNode) []model.Review {
	seen := map[string]bool{}
	byState := map[string][]string{}

	for i := len(reviews) - 1; i >= 0; i-- {
		r := reviews[i]
		if r.Author == nil || r.Author.Login == "" || seen[r.Author.Login] {
			continue
		}
		seen[r.Author.Login] = true
		byState[r.State] = append(byState[r.State], r.Author.Login)
	}

	states := make([]string, 0, len(byState))
	for state := range byState {
		states = append(states, state)
	}
	sort.Strings(states)

	var grouped []model.Review
	for _, state := range states {
		grouped = append(grouped, model.Review{State: state, Users: byState[state]})
	}
	return grouped
}
