package services

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"civicx-be/apperr"
	"civicx-be/lifecycle"
	"civicx-be/models"
)

// VoteService keeps the cached vote counter on an issue consistent with
// the vote ledger. The counter update is read-then-write, not atomic
// across the two documents, so concurrent double-toggles can drift the
// counter; Recount repairs that from the ledger.
type VoteService struct {
	issues IssueStore
	votes  VoteStore
	logger *slog.Logger
}

func NewVoteService(issues IssueStore, votes VoteStore, logger *slog.Logger) *VoteService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoteService{issues: issues, votes: votes, logger: logger}
}

type ToggleResult struct {
	Voted     bool `json:"voted"`
	VoteCount int  `json:"voteCount"`
}

// Toggle casts or withdraws the user's vote on an issue. Toggle is its own
// inverse: calling it twice restores the original state and count.
func (s *VoteService) Toggle(ctx context.Context, issueID, userID primitive.ObjectID, role models.UserRole) (*ToggleResult, error) {
	if !lifecycle.Can(role, lifecycle.ActionVote) {
		return nil, apperr.New(apperr.KindPermission, "this account cannot vote on issues")
	}

	issue, err := s.issues.FindByID(ctx, issueID)
	if err != nil {
		return nil, err
	}

	voted, err := s.votes.Exists(ctx, issueID, userID)
	if err != nil {
		return nil, err
	}

	if voted {
		if _, err := s.votes.Delete(ctx, issueID, userID); err != nil {
			return nil, err
		}
		count := issue.Votes - 1
		if count < 0 {
			count = 0
		}
		if err := s.issues.SetVotes(ctx, issueID, count); err != nil {
			return nil, err
		}
		return &ToggleResult{Voted: false, VoteCount: count}, nil
	}

	vote := &models.Vote{
		ID:      primitive.NewObjectID(),
		Issue:   issueID,
		User:    userID,
		VotedAt: time.Now(),
	}
	if err := s.votes.Insert(ctx, vote); err != nil {
		return nil, err
	}
	count := issue.Votes + 1
	if err := s.issues.SetVotes(ctx, issueID, count); err != nil {
		return nil, err
	}
	return &ToggleResult{Voted: true, VoteCount: count}, nil
}

// Recount recomputes the cached counter from the ledger and stores it.
// Idempotent; callable periodically or on demand to bound drift.
func (s *VoteService) Recount(ctx context.Context, issueID primitive.ObjectID) (int, error) {
	count, err := s.votes.CountByIssue(ctx, issueID)
	if err != nil {
		return 0, err
	}
	if err := s.issues.SetVotes(ctx, issueID, int(count)); err != nil {
		return 0, err
	}
	return int(count), nil
}

// UserVotes returns the ids of issues the user has voted for.
func (s *VoteService) UserVotes(ctx context.Context, userID primitive.ObjectID) ([]string, error) {
	ids, err := s.votes.ListIssueIDsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	hex := make([]string, 0, len(ids))
	for _, id := range ids {
		hex = append(hex, id.Hex())
	}
	return hex, nil
}

// Count returns the authoritative vote count from the ledger.
func (s *VoteService) Count(ctx context.Context, issueID primitive.ObjectID) (int64, error) {
	return s.votes.CountByIssue(ctx, issueID)
}
