package format

import (
	"github.com/gitify-app/gitify-sub003/internal/model"
)

// SubjectGlyph returns a single-character marker for a notification subject
// type, loosely matching the octicons GitHub uses.
func SubjectGlyph(t model.SubjectType) string {
	switch t {
	case model.SubjectIssue:
		return "◉"
	case model.SubjectPullRequest:
		return "⇄"
	case model.SubjectDiscussion:
		return "🗩"
	case model.SubjectCommit:
		return "⬡"
	case model.SubjectRelease:
		return "⏷"
	case model.SubjectCheckSuite, model.SubjectWorkflowRun:
		return "⚙"
	case model.SubjectVulnerabilityAlert, model.SubjectDependabotAlertsThread:
		return "⚠"
	default:
		return "•"
	}
}

// StateLabel returns a short display label for an enriched subject state, or
// empty when the subject was not enriched.
func StateLabel(s model.StateType) string {
	switch s {
	case "":
		return ""
	case model.StateNotPlanned:
		return "not planned"
	case model.StateMergeQueue:
		return "queued"
	default:
		return string(s)
	}
}
