package model

import "time"

// Reason represents why the user received a notification.
type Reason string

const (
	ReasonApprovalRequested Reason = "approval_requested"
	ReasonAssign            Reason = "assign"
	ReasonAuthor            Reason = "author"
	ReasonCIActivity        Reason = "ci_activity"
	ReasonComment           Reason = "comment"
	ReasonInvitation        Reason = "invitation"
	ReasonManual            Reason = "manual"
	ReasonMention           Reason = "mention"
	ReasonReviewRequested   Reason = "review_requested"
	ReasonSecurityAlert     Reason = "security_alert"
	ReasonStateChange       Reason = "state_change"
	ReasonSubscribed        Reason = "subscribed"
	ReasonTeamMention       Reason = "team_mention"
)

// SubjectType represents the type of entity a notification refers to.
type SubjectType string

const (
	SubjectCheckSuite             SubjectType = "CheckSuite"
	SubjectCommit                 SubjectType = "Commit"
	SubjectDiscussion             SubjectType = "Discussion"
	SubjectIssue                  SubjectType = "Issue"
	SubjectPullRequest            SubjectType = "PullRequest"
	SubjectRelease                SubjectType = "Release"
	SubjectVulnerabilityAlert     SubjectType = "RepositoryVulnerabilityAlert"
	SubjectDependabotAlertsThread SubjectType = "RepositoryDependabotAlertsThread"
	SubjectWorkflowRun            SubjectType = "WorkflowRun"
)

// StateType is the enriched state of a subject. Values vary per subject type:
// issues use open/closed/completed/not_planned/reopened, pull requests add
// draft/merged/merge_queue, discussions use answered/duplicate/outdated/
// resolved, and check suites / workflow runs use run outcomes.
type StateType string

const (
	StateOpen       StateType = "open"
	StateClosed     StateType = "closed"
	StateCompleted  StateType = "completed"
	StateNotPlanned StateType = "not_planned"
	StateReopened   StateType = "reopened"

	StateDraft      StateType = "draft"
	StateMerged     StateType = "merged"
	StateMergeQueue StateType = "merge_queue"

	StateAnswered  StateType = "answered"
	StateDuplicate StateType = "duplicate"
	StateOutdated  StateType = "outdated"
	StateResolved  StateType = "resolved"

	StateCancelled StateType = "cancelled"
	StateFailure   StateType = "failure"
	StateSkipped   StateType = "skipped"
	StateSuccess   StateType = "success"
	StateWaiting   StateType = "waiting"
)

// SubjectUser is the author or most recent commenter on a subject.
type SubjectUser struct {
	Login     string `json:"login"`
	HTMLURL   string `json:"html_url"`
	AvatarURL string `json:"avatar_url"`
	Type      string `json:"type"`
}

// Review groups pull request reviewers by their latest review state.
type Review struct {
	State string   `json:"state"`
	Users []string `json:"users"`
}

// Milestone is the milestone a subject is attached to, if any.
type Milestone struct {
	Title string `json:"title"`
	State string `json:"state"`
}

// Subject is the underlying GitHub entity a notification refers to. The base
// fields come from the notification list endpoint; the remainder are filled
// in by enrichment and stay zero-valued when enrichment is disabled or fails.
type Subject struct {
	Title            string      `json:"title"`
	URL              string      `json:"url"`
	LatestCommentURL string      `json:"latest_comment_url"`
	Type             SubjectType `json:"type"`

	// Enriched fields.
	Number       int          `json:"number,omitempty"`
	State        StateType    `json:"state,omitempty"`
	User         *SubjectUser `json:"user,omitempty"`
	Reviews      []Review     `json:"reviews,omitempty"`
	LinkedIssues []string     `json:"linked_issues,omitempty"`
	Labels       []string     `json:"labels,omitempty"`
	Comments     int          `json:"comments,omitempty"`
	Milestone    *Milestone   `json:"milestone,omitempty"`
	HTMLURL      string       `json:"html_url,omitempty"`
}

// Repository identifies the repository a notification belongs to.
type Repository struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Owner    string `json:"owner"`
	Private  bool   `json:"private"`
	HTMLURL  string `json:"html_url"`
}

// Notification is a single notification thread for one account. IDs are only
// unique per host, so a notification is always paired with its account.
type Notification struct {
	ID              string     `json:"id"`
	Account         Account    `json:"-"`
	Unread          bool       `json:"unread"`
	Reason          Reason     `json:"reason"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastReadAt      *time.Time `json:"last_read_at,omitempty"`
	Subject         Subject    `json:"subject"`
	Repository      Repository `json:"repository"`
	URL             string     `json:"url"`
	SubscriptionURL string     `json:"subscription_url"`
}

// AccountNotifications groups one account's notifications together with the
// classified error of its most recent fetch, if any. It is the unit exchanged
// between the engine and its consumers; slices of it preserve account
// registration order.
type AccountNotifications struct {
	Account       Account
	Notifications []Notification
	Error         error
}

// NotificationCount returns the total notification count across accounts.
func NotificationCount(accounts []AccountNotifications) int {
	total := 0
	for _, a := range accounts {
		total += len(a.Notifications)
	}
	return total
}

// UnreadNotificationCount returns the unread notification count across accounts.
func UnreadNotificationCount(accounts []AccountNotifications) int {
	total := 0
	for _, a := range accounts {
		for _, n := range a.Notifications {
			if n.Unread {
				total++
			}
		}
	}
	return total
}
