package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"civicx-be/apperr"
	"civicx-be/models"
)

// VoteRepository is the source-of-truth ledger for votes. The unique
// (issue, user) index makes duplicate pairs impossible at the store.
type VoteRepository struct {
	col *mongo.Collection
}

func NewVoteRepository(db *mongo.Database) *VoteRepository {
	return &VoteRepository{col: db.Collection("votes")}
}

// EnsureIndexes creates the unique compound index; call once at startup.
func (r *VoteRepository) EnsureIndexes() error {
	return models.EnsureVoteIndex(r.col)
}

func (r *VoteRepository) Insert(ctx context.Context, vote *models.Vote) error {
	if _, err := r.col.InsertOne(ctx, vote); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Wrap(apperr.KindValidation, "vote already recorded for this user and issue", err)
		}
		return apperr.Wrap(apperr.KindTransport, "failed to cast vote", err)
	}
	return nil
}

func (r *VoteRepository) Delete(ctx context.Context, issueID, userID primitive.ObjectID) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"issue": issueID, "user": userID})
	if err != nil {
		return false, apperr.Wrap(apperr.KindTransport, "failed to remove vote", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *VoteRepository) Exists(ctx context.Context, issueID, userID primitive.ObjectID) (bool, error) {
	count, err := r.col.CountDocuments(ctx, bson.M{"issue": issueID, "user": userID})
	if err != nil {
		return false, apperr.Wrap(apperr.KindTransport, "failed to check existing votes", err)
	}
	return count > 0, nil
}

func (r *VoteRepository) CountByIssue(ctx context.Context, issueID primitive.ObjectID) (int64, error) {
	count, err := r.col.CountDocuments(ctx, bson.M{"issue": issueID})
	if err != nil {
		return 0, apperr.Wrap(apperr.KindTransport, "failed to count votes", err)
	}
	return count, nil
}

func (r *VoteRepository) ListIssueIDsByUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cursor, err := r.col.Find(ctx, bson.M{"user": userID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "failed to list user votes", err)
	}
	defer cursor.Close(ctx)

	var votes []models.Vote
	if err := cursor.All(ctx, &votes); err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "failed to decode user votes", err)
	}

	ids := make([]primitive.ObjectID, 0, len(votes))
	for _, v := range votes {
		ids = append(ids, v.Issue)
	}
	return ids, nil
}

func (r *VoteRepository) DeleteByIssue(ctx context.Context, issueID primitive.ObjectID) error {
	if _, err := r.col.DeleteMany(ctx, bson.M{"issue": issueID}); err != nil {
		return apperr.Wrap(apperr.KindTransport, "failed to delete issue votes", err)
	}
	return nil
}

func (r *VoteRepository) CountAll(ctx context.Context) (int64, error) {
	count, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, apperr.Wrap(apperr.KindTransport, "failed to count votes", err)
	}
	return count, nil
}
