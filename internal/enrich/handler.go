// Package enrich resolves extended subject state for notifications beyond
// what the notification list endpoint returns. Each subject type has a
// handler; Issue, PullRequest and Discussion handlers can join a single
// batched GraphQL query, while CheckSuite and WorkflowRun state is derived
// locally from the notification title.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gitify-app/gitify-sub003/internal/api"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

// Handler enriches one subject type. Adding a new subject type means
// registering a new handler, not editing a central switch.
type Handler interface {
	// Type is the subject type this handler serves.
	Type() model.SubjectType
	// Batchable reports whether the subject can join a merged GraphQL query.
	Batchable() bool
	// EnrichLocal derives subject state without any network call, e.g. from
	// the notification title. No-op for most types.
	EnrichLocal(n *model.Notification)
	// Enrich fully resolves subject details for a single notification,
	// issuing whatever requests the subject type needs.
	Enrich(ctx context.Context, c *api.Client, n *model.Notification) error
	// ApplyNode merges an aliased repository payload from a batched query
	// onto the notification subject.
	ApplyNode(n *model.Notification, node json.RawMessage) error
}

var handlers = map[model.SubjectType]Handler{}

func register(h Handler) {
	handlers[h.Type()] = h
}

func init() {
	register(&issueHandler{})
	register(&pullRequestHandler{})
	register(&discussionHandler{})
	register(&checkSuiteHandler{})
	register(&workflowRunHandler{})
	register(&commitHandler{})
	register(&releaseHandler{})
}

// HandlerFor returns the handler for a subject type, falling back to a no-op
// default for types with no extra state (security alerts and the like).
func HandlerFor(t model.SubjectType) Handler {
	if h, ok := handlers[t]; ok {
		return h
	}
	return defaultHandler{}
}

// defaultHandler leaves the base subject untouched.
type defaultHandler struct{}

func (defaultHandler) Type() model.SubjectType        { return "" }
func (defaultHandler) Batchable() bool                { return false }
func (defaultHandler) EnrichLocal(*model.Notification) {}
func (defaultHandler) Enrich(context.Context, *api.Client, *model.Notification) error {
	return nil
}
func (defaultHandler) ApplyNode(*model.Notification, json.RawMessage) error { return nil }

// NumberFromURL extracts the trailing issue/PR/discussion number from a REST
// subject URL such as https://api.github.com/repos/owner/repo/issues/123.
func NumberFromURL(apiURL string) (int, error) {
	parts := strings.Split(strings.TrimSuffix(apiURL, "/"), "/")
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid subject URL: %s", apiURL)
	}
	num, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, fmt.Errorf("no number in subject URL %s: %w", apiURL, err)
	}
	return num, nil
}

// Shared GraphQL response shapes.

type actorNode struct {
	Login     string `json:"login"`
	URL       string `json:"url"`
	AvatarURL string `json:"avatarUrl"`
	Typename  string `json:"__typename"`
}

func (a *actorNode) toUser() *model.SubjectUser {
	if a == nil || a.Login == "" {
		return nil
	}
	return &model.SubjectUser{
		Login:     a.Login,
		HTMLURL:   a.URL,
		AvatarURL: a.AvatarURL,
		Type:      a.Typename,
	}
}

// pickAuthor returns the first present actor, preferring earlier entries.
// Callers list the latest commenter before the subject author.
func pickAuthor(candidates ...*actorNode) *model.SubjectUser {
	for _, c := range candidates {
		if u := c.toUser(); u != nil {
			return u
		}
	}
	return nil
}

type labelsNode struct {
	Nodes []struct {
		Name string `json:"name"`
	} `json:"nodes"`
}

func (l labelsNode) names() []string {
	var names []string
	for _, n := range l.Nodes {
		if n.Name != "" {
			names = append(names, n.Name)
		}
	}
	return names
}

type milestoneNode struct {
	Title string `json:"title"`
	State string `json:"state"`
}

func (m *milestoneNode) toMilestone() *model.Milestone {
	if m == nil {
		return nil
	}
	return &model.Milestone{Title: m.Title, State: m.State}
}

type commentNode struct {
	URL       string     `json:"url"`
	CreatedAt time.Time  `json:"createdAt"`
	Author    *actorNode `json:"author"`
}

type commentsNode struct {
	TotalCount int           `json:"totalCount"`
	Nodes      []commentNode `json:"nodes"`
}

func (c commentsNode) latest() *commentNode {
	if len(c.Nodes) == 0 {
		return nil
	}
	return &c.Nodes[len(c.Nodes)-1]
}

// repositoryNode is one aliased node of a batched query; exactly one of the
// three fields is populated depending on the type-guard variables.
type repositoryNode struct {
	Issue       json.RawMessage `json:"issue"`
	PullRequest json.RawMessage `json:"pullRequest"`
	Discussion  json.RawMessage `json:"discussion"`
}
