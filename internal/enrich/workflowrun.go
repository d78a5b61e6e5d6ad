package enrich

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/gitify-app/gitify-sub003/internal/api"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

// Workflow run notifications are deployment review requests, e.g.
// "octocat requested your review to deploy to an environment".
var workflowRunTitlePattern = regexp.MustCompile(
	`^(.*?) requested your (.*?) to deploy to an environment$`)

// WorkflowRunAttributes is the state parsed out of a workflow run
// notification title.
type WorkflowRunAttributes struct {
	RequestingUser string
	Status         model.StateType
	StatusText     string
}

// ParseWorkflowRunTitle extracts deployment review attributes from a workflow
// run notification title.
func ParseWorkflowRunTitle(title string) (WorkflowRunAttributes, bool) {
	m := workflowRunTitlePattern.FindStringSubmatch(title)
	if m == nil {
		return WorkflowRunAttributes{}, false
	}
	return WorkflowRunAttributes{
		RequestingUser: m[1],
		StatusText:     m[2],
		Status:         workflowRunStatus(m[2]),
	}, true
}

func workflowRunStatus(text string) model.StateType {
	// A pending review request is the only state these titles encode today.
	if text == "review" {
		return model.StateWaiting
	}
	return ""
}

type workflowRunHandler struct{}

func (workflowRunHandler) Type() model.SubjectType { return model.SubjectWorkflowRun }
func (workflowRunHandler) Batchable() bool         { return false }

func (workflowRunHandler) EnrichLocal(n *model.Notification) {
	attrs, ok := ParseWorkflowRunTitle(n.Subject.Title)
	if !ok {
		return
	}
	n.Subject.State = attrs.Status
}

func (h workflowRunHandler) Enrich(_ context.Context, _ *api.Client, n *model.Notification) error {
	h.EnrichLocal(n)
	return nil
}

func (workflowRunHandler) ApplyNode(*model.Notification, json.RawMessage) error { return nil }
