package enrich

import (
	"fmt"
	"strings"

	"github.com/gitify-app/gitify-sub003/internal/model"
)

// Page-size variables shared by every node in a merged query. A single latest
// comment is enough to attribute an update; reviews and labels are fetched
// wide because they are cheap leaf fields.
const (
	lastComments         = 1
	lastThreadedComments = 10
	lastReplies          = 10
	lastReviews          = 100
	firstLabels          = 100
	firstClosingIssues   = 100
)

const authorFragment = `fragment AuthorFields on Actor {
  login
  url
  avatarUrl
  __typename
}`

const milestoneFragment = `fragment MilestoneFields on Milestone {
  title
  state
}`

const issueFragment = `fragment IssueDetails on Issue {
  number
  state
  stateReason
  title
  url
  author {
    ...AuthorFields
  }
  comments(last: $lastComments) {
    totalCount
    nodes {
      url
      createdAt
      author {
        ...AuthorFields
      }
    }
  }
  labels(first: $firstLabels) {
    nodes {
      name
    }
  }
  milestone {
    ...MilestoneFields
  }
}`

const pullRequestFragment = `fragment PullRequestDetails on PullRequest {
  number
  state
  isDraft
  isInMergeQueue
  merged
  title
  url
  author {
    ...AuthorFields
  }
  comments(last: $lastComments) {
    totalCount
    nodes {
      url
      createdAt
      author {
        ...AuthorFields
      }
    }
  }
  labels(first: $firstLabels) {
    nodes {
      name
    }
  }
  latestOpinionatedReviews(last: $lastReviews) {
    nodes {
      state
      author {
        ...AuthorFields
      }
    }
  }
  closingIssuesReferences(first: $firstClosingIssues) {
    nodes {
      number
    }
  }
  milestone {
    ...MilestoneFields
  }
}`

const discussionFragment = `fragment DiscussionDetails on Discussion {
  number
  title
  url
  stateReason
  isAnswered @include(if: $includeIsAnswered)
  author {
    ...AuthorFields
  }
  comments(last: $lastThreadedComments) {
    totalCount
    nodes {
      url
      createdAt
      author {
        ...AuthorFields
      }
      replies(last: $lastReplies) {
        nodes {
          url
          createdAt
          author {
            ...AuthorFields
          }
        }
      }
    }
  }
  labels(first: $firstLabels) {
    nodes {
      name
    }
  }
}`

const sharedVarDefs = "$lastComments: Int, $lastThreadedComments: Int, $lastReplies: Int, " +
	"$lastReviews: Int, $firstLabels: Int, $firstClosingIssues: Int, $includeIsAnswered: Boolean!"

// MergeQueryBuilder assembles a single GraphQL document that resolves many
// notification subjects at once. Each added subject becomes an aliased
// repository node guarded by per-node boolean variables, so mixed batches of
// issues, pull requests and discussions share one round trip.
type MergeQueryBuilder struct {
	selections []string
	varDefs    []string
	vars       map[string]any
}

// NewMergeQueryBuilder creates an empty builder. includeIsAnswered must be
// false for hosts whose schema predates the isAnswered discussion field.
func NewMergeQueryBuilder(includeIsAnswered bool) *MergeQueryBuilder {
	return &MergeQueryBuilder{
		vars: map[string]any{
			"lastComments":         lastComments,
			"lastThreadedComments": lastThreadedComments,
			"lastReplies":          lastReplies,
			"lastReviews":          lastReviews,
			"firstLabels":          firstLabels,
			"firstClosingIssues":   firstClosingIssues,
			"includeIsAnswered":    includeIsAnswered,
		},
	}
}

// AddNode registers one subject and returns the alias its payload will carry
// in the response data.
func (b *MergeQueryBuilder) AddNode(owner, name string, number int, subjectType model.SubjectType) string {
	i := len(b.selections)
	alias := fmt.Sprintf("node%d", i)

	b.varDefs = append(b.varDefs,
		fmt.Sprintf("$owner%d: String!", i),
		fmt.Sprintf("$name%d: String!", i),
		fmt.Sprintf("$number%d: Int!", i),
		fmt.Sprintf("$isIssueNotification%d: Boolean!", i),
		fmt.Sprintf("$isPullRequestNotification%d: Boolean!", i),
		fmt.Sprintf("$isDiscussionNotification%d: Boolean!", i),
	)
	b.vars[fmt.Sprintf("owner%d", i)] = owner
	b.vars[fmt.Sprintf("name%d", i)] = name
	b.vars[fmt.Sprintf("number%d", i)] = number
	b.vars[fmt.Sprintf("isIssueNotification%d", i)] = subjectType == model.SubjectIssue
	b.vars[fmt.Sprintf("isPullRequestNotification%d", i)] = subjectType == model.SubjectPullRequest
	b.vars[fmt.Sprintf("isDiscussionNotification%d", i)] = subjectType == model.SubjectDiscussion

	var sel strings.Builder
	fmt.Fprintf(&sel, "  %s: repository(owner: $owner%d, name: $name%d) {\n", alias, i, i)
	fmt.Fprintf(&sel, "    issue(number: $number%d) @include(if: $isIssueNotification%d) {\n", i, i)
	sel.WriteString("      ...IssueDetails\n    }\n")
	fmt.Fprintf(&sel, "    pullRequest(number: $number%d) @include(if: $isPullRequestNotification%d) {\n", i, i)
	sel.WriteString("      ...PullRequestDetails\n    }\n")
	fmt.Fprintf(&sel, "    discussion(number: $number%d) @include(if: $isDiscussionNotification%d) {\n", i, i)
	sel.WriteString("      ...DiscussionDetails\n    }\n")
	sel.WriteString("  }")
	b.selections = append(b.selections, sel.String())

	return alias
}

// Len returns the number of nodes added so far.
func (b *MergeQueryBuilder) Len() int {
	return len(b.selections)
}

// Query renders the full GraphQL document.
func (b *MergeQueryBuilder) Query() string {
	var doc strings.Builder
	doc.WriteString("query FetchMergedNotifications(")
	doc.WriteString(sharedVarDefs)
	for _, def := range b.varDefs {
		doc.WriteString(", ")
		doc.WriteString(def)
	}
	doc.WriteString(") {\n")
	doc.WriteString(strings.Join(b.selections, "\n"))
	doc.WriteString("\n}\n\n")
	doc.WriteString(authorFragment)
	doc.WriteString("\n\n")
	doc.WriteString(milestoneFragment)
	doc.WriteString("\n\n")
	doc.WriteString(issueFragment)
	doc.WriteString("\n\n")
	doc.WriteString(pullRequestFragment)
	doc.WriteString("\n\n")
	doc.WriteString(discussionFragment)
	return doc.String()
}

// Variables returns the variable map for the rendered query.
func (b *MergeQueryBuilder) Variables() map[string]any {
	return b.vars
}
