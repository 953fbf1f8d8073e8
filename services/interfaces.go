// Package services holds the application logic between the HTTP handlers
// and the MongoDB repositories. Services depend on the store interfaces
// below so tests can run against in-memory fakes.
package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"civicx-be/feed"
	"civicx-be/lifecycle"
	"civicx-be/models"
	"civicx-be/repository"
)

type IssueStore interface {
	Insert(ctx context.Context, issue *models.Issue) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	Find(ctx context.Context, f repository.IssueFilter) ([]models.Issue, error)
	Count(ctx context.Context, f repository.IssueFilter) (int64, error)
	ApplyTransition(ctx context.Context, id primitive.ObjectID, patch lifecycle.TransitionPatch) (*models.Issue, error)
	SetVotes(ctx context.Context, id primitive.ObjectID, votes int) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	CountsByCategory(ctx context.Context) ([]repository.CategoryCount, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountByStatus(ctx context.Context, statuses ...models.IssueStatus) (int64, error)
}

type VoteStore interface {
	Insert(ctx context.Context, vote *models.Vote) error
	Delete(ctx context.Context, issueID, userID primitive.ObjectID) (bool, error)
	Exists(ctx context.Context, issueID, userID primitive.ObjectID) (bool, error)
	CountByIssue(ctx context.Context, issueID primitive.ObjectID) (int64, error)
	ListIssueIDsByUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	DeleteByIssue(ctx context.Context, issueID primitive.ObjectID) error
	CountAll(ctx context.Context) (int64, error)
}

type UserStore interface {
	Insert(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error)
}

// EventPublisher pushes issue events to the live feed. Publishing is
// best-effort; services log failures and carry on.
type EventPublisher interface {
	Publish(ctx context.Context, ev feed.Event) error
}
