package services

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"civicx-be/models"
	"civicx-be/repository"
)

// Scoring for the citizen leaderboard: reporting weighs more than
// collecting votes, resolved reports earn a bonus.
const (
	pointsPerReport   = 10
	pointsPerVote     = 2
	pointsPerResolved = 15
)

type LeaderboardEntry struct {
	UserID        primitive.ObjectID `json:"userId"`
	Name          string             `json:"name"`
	IssuesCount   int                `json:"issuesCount"`
	VotesReceived int64              `json:"votesReceived"`
	ResolvedCount int                `json:"resolvedCount"`
	Points        int64              `json:"points"`
}

type LeaderboardService struct {
	issues IssueStore
	votes  VoteStore
	users  UserStore
}

func NewLeaderboardService(issues IssueStore, votes VoteStore, users UserStore) *LeaderboardService {
	return &LeaderboardService{issues: issues, votes: votes, users: users}
}

// Top computes the citizen leaderboard over the most recent issues.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	issues, err := s.issues.Find(ctx, repository.IssueFilter{Limit: 500})
	if err != nil {
		return nil, err
	}

	byUser := make(map[primitive.ObjectID]*LeaderboardEntry)
	for _, issue := range issues {
		entry, ok := byUser[issue.CreatedBy]
		if !ok {
			entry = &LeaderboardEntry{UserID: issue.CreatedBy}
			byUser[issue.CreatedBy] = entry
		}
		entry.IssuesCount++
		if issue.Status == models.StatusResolved {
			entry.ResolvedCount++
		}

		votes, err := s.votes.CountByIssue(ctx, issue.ID)
		if err != nil {
			return nil, err
		}
		entry.VotesReceived += votes
	}

	ids := make([]primitive.ObjectID, 0, len(byUser))
	for id := range byUser {
		ids = append(ids, id)
	}
	names, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(byUser))
	for id, entry := range byUser {
		if user, ok := names[id]; ok {
			entry.Name = user.Name
		}
		entry.Points = int64(entry.IssuesCount)*pointsPerReport +
			entry.VotesReceived*pointsPerVote +
			int64(entry.ResolvedCount)*pointsPerResolved
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
