package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"civicx-be/apperr"
	"civicx-be/feed"
	"civicx-be/lifecycle"
	"civicx-be/models"
	"civicx-be/repository"
)

// In-memory stores standing in for the MongoDB repositories.

type fakeIssueStore struct {
	mu     sync.Mutex
	issues map[primitive.ObjectID]models.Issue
}

func newFakeIssueStore() *fakeIssueStore {
	return &fakeIssueStore{issues: make(map[primitive.ObjectID]models.Issue)}
}

func (f *fakeIssueStore) Insert(_ context.Context, issue *models.Issue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issues[issue.ID] = *issue
	return nil
}

func (f *fakeIssueStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, ok := f.issues[id]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "issue %s not found", id.Hex())
	}
	return &issue, nil
}

func (f *fakeIssueStore) matches(issue models.Issue, flt repository.IssueFilter) bool {
	if flt.Category != "" && flt.Category != "all" && string(issue.Category) != flt.Category {
		return false
	}
	if flt.Status != "" && flt.Status != "all" && string(issue.Status) != flt.Status {
		return false
	}
	if flt.CreatedBy != nil && issue.CreatedBy != *flt.CreatedBy {
		return false
	}
	if flt.HasLocation && (issue.Latitude == nil || issue.Longitude == nil) {
		return false
	}
	return true
}

func (f *fakeIssueStore) Find(_ context.Context, flt repository.IssueFilter) ([]models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Issue
	for _, issue := range f.issues {
		if f.matches(issue, flt) {
			out = append(out, issue)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if flt.OldestFirst {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if flt.Skip > 0 && int(flt.Skip) < len(out) {
		out = out[flt.Skip:]
	} else if flt.Skip > 0 {
		out = nil
	}
	if flt.Limit > 0 && int64(len(out)) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

func (f *fakeIssueStore) Count(_ context.Context, flt repository.IssueFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, issue := range f.issues {
		if f.matches(issue, flt) {
			n++
		}
	}
	return n, nil
}

func (f *fakeIssueStore) ApplyTransition(_ context.Context, id primitive.ObjectID, patch lifecycle.TransitionPatch) (*models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, ok := f.issues[id]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "issue %s not found", id.Hex())
	}
	lifecycle.Apply(&issue, patch)
	issue.UpdatedAt = time.Now()
	f.issues[id] = issue
	return &issue, nil
}

func (f *fakeIssueStore) SetVotes(_ context.Context, id primitive.ObjectID, votes int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, ok := f.issues[id]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "issue %s not found", id.Hex())
	}
	issue.Votes = votes
	f.issues[id] = issue
	return nil
}

func (f *fakeIssueStore) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.issues[id]; !ok {
		return apperr.Newf(apperr.KindNotFound, "issue %s not found", id.Hex())
	}
	delete(f.issues, id)
	return nil
}

func (f *fakeIssueStore) CountsByCategory(_ context.Context) ([]repository.CategoryCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byName := make(map[string]int64)
	for _, issue := range f.issues {
		byName[string(issue.Category)]++
	}
	out := make([]repository.CategoryCount, 0, len(byName))
	for name, value := range byName {
		out = append(out, repository.CategoryCount{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeIssueStore) CountCreatedBetween(_ context.Context, from, to time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, issue := range f.issues {
		if !issue.CreatedAt.Before(from) && issue.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (f *fakeIssueStore) CountByStatus(_ context.Context, statuses ...models.IssueStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, issue := range f.issues {
		for _, status := range statuses {
			if issue.Status == status {
				n++
				break
			}
		}
	}
	return n, nil
}

type votePair struct {
	issue primitive.ObjectID
	user  primitive.ObjectID
}

type fakeVoteStore struct {
	mu    sync.Mutex
	votes map[votePair]models.Vote
}

func newFakeVoteStore() *fakeVoteStore {
	return &fakeVoteStore{votes: make(map[votePair]models.Vote)}
}

func (f *fakeVoteStore) Insert(_ context.Context, vote *models.Vote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := votePair{issue: vote.Issue, user: vote.User}
	if _, exists := f.votes[key]; exists {
		return apperr.New(apperr.KindValidation, "vote already recorded for this user and issue")
	}
	f.votes[key] = *vote
	return nil
}

func (f *fakeVoteStore) Delete(_ context.Context, issueID, userID primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := votePair{issue: issueID, user: userID}
	if _, ok := f.votes[key]; !ok {
		return false, nil
	}
	delete(f.votes, key)
	return true, nil
}

func (f *fakeVoteStore) Exists(_ context.Context, issueID, userID primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.votes[votePair{issue: issueID, user: userID}]
	return ok, nil
}

func (f *fakeVoteStore) CountByIssue(_ context.Context, issueID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for key := range f.votes {
		if key.issue == issueID {
			n++
		}
	}
	return n, nil
}

func (f *fakeVoteStore) ListIssueIDsByUser(_ context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []primitive.ObjectID
	for key := range f.votes {
		if key.user == userID {
			ids = append(ids, key.issue)
		}
	}
	return ids, nil
}

func (f *fakeVoteStore) DeleteByIssue(_ context.Context, issueID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.votes {
		if key.issue == issueID {
			delete(f.votes, key)
		}
	}
	return nil
}

func (f *fakeVoteStore) CountAll(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.votes)), nil
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[primitive.ObjectID]models.User)}
}

func (f *fakeUserStore) Insert(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "user %s not found", id.Hex())
	}
	return &user, nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, apperr.Newf(apperr.KindNotFound, "no user with email %s", email)
}

func (f *fakeUserStore) EmailTaken(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) FindByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[primitive.ObjectID]models.User)
	for _, id := range ids {
		if user, ok := f.users[id]; ok {
			out[id] = user
		}
	}
	return out, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []feed.Event
}

func (p *capturePublisher) Publish(_ context.Context, ev feed.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) kinds() []feed.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]feed.EventKind, 0, len(p.events))
	for _, ev := range p.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}
