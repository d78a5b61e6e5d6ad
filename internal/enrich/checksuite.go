package enrich

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/gitify-app/gitify-sub003/internal/api"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

// Check suite notifications have no subject URL; everything we can know is
// encoded in the title, e.g.
// "Demo workflow run, Attempt #2 failed for main branch".
var checkSuiteTitlePattern = regexp.MustCompile(
	`^(.*?) workflow run(?:, Attempt #(\d+))? (.*?) for (.*?) branch$`)

// CheckSuiteAttributes is the state parsed out of a check suite title.
type CheckSuiteAttributes struct {
	WorkflowName  string
	AttemptNumber int
	Status        model.StateType
	StatusText    string
	BranchName    string
}

// ParseCheckSuiteTitle extracts run attributes from a check suite
// notification title. Returns false when the title does not match the known
// format.
func ParseCheckSuiteTitle(title string) (CheckSuiteAttributes, bool) {
	m := checkSuiteTitlePattern.FindStringSubmatch(title)
	if m == nil {
		return CheckSuiteAttributes{}, false
	}

	attrs := CheckSuiteAttributes{
		WorkflowName: m[1],
		StatusText:   m[3],
		BranchName:   m[4],
		Status:       checkSuiteStatus(m[3]),
	}
	if m[2] != "" {
		attrs.AttemptNumber, _ = strconv.Atoi(m[2])
	}
	return attrs, true
}

func checkSuiteStatus(text string) model.StateType {
	switch text {
	case "cancelled":
		return model.StateCancelled
	case "failed", "failed at startup":
		return model.StateFailure
	case "skipped":
		return model.StateSkipped
	case "succeeded":
		return model.StateSuccess
	default:
		return ""
	}
}

type checkSuiteHandler struct{}

func (checkSuiteHandler) Type() model.SubjectType { return model.SubjectCheckSuite }
func (checkSuiteHandler) Batchable() bool         { return false }

func (checkSuiteHandler) EnrichLocal(n *model.Notification) {
	attrs, ok := ParseCheckSuiteTitle(n.Subject.Title)
	if !ok {
		return
	}
	n.Subject.State = attrs.Status
}

func (h checkSuiteHandler) Enrich(_ context.Context, _ *api.Client, n *model.Notification) error {
	h.EnrichLocal(n)
	return nil
}

func (checkSuiteHandler) ApplyNode(*model.Notification, json.RawMessage) error { return nil }
