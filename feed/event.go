// Package feed carries issue events from the store to interested clients:
// a Redis pub/sub channel between processes, and an in-process notifier
// that fans events out to role-filtered listeners.
package feed

import "civicx-be/models"

type EventKind string

const (
	EventIssueCreated  EventKind = "issue.created"
	EventIssueResolved EventKind = "issue.resolved"
)

type Event struct {
	Kind  EventKind    `json:"kind"`
	Issue models.Issue `json:"issue"`
}

// Predicate decides whether a listener receives an event.
type Predicate func(Event) bool

// Callback handles a delivered event.
type Callback func(Event)

// ForOfficials matches new-complaint events, the feed officials watch.
func ForOfficials() Predicate {
	return func(ev Event) bool {
		return ev.Kind == EventIssueCreated
	}
}

// ForCreator matches resolution events for issues the given user reported.
func ForCreator(userID string) Predicate {
	return func(ev Event) bool {
		return ev.Kind == EventIssueResolved && ev.Issue.CreatedBy.Hex() == userID
	}
}
