package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"civicx-be/apperr"
	"civicx-be/lifecycle"
	"civicx-be/models"
)

// IssueFilter narrows issue queries. Zero values mean "no constraint".
type IssueFilter struct {
	Category    string
	Status      string
	Search      string
	CreatedBy   *primitive.ObjectID
	HasLocation bool
	OldestFirst bool
	Skip        int64
	Limit       int64
}

// CategoryCount is one bucket of the per-category aggregation.
type CategoryCount struct {
	Name  string `bson:"name" json:"name"`
	Value int64  `bson:"value" json:"value"`
}

type IssueRepository struct {
	col *mongo.Collection
}

func NewIssueRepository(db *mongo.Database) *IssueRepository {
	return &IssueRepository{col: db.Collection("issues")}
}

func (r *IssueRepository) Insert(ctx context.Context, issue *models.Issue) error {
	if _, err := r.col.InsertOne(ctx, issue); err != nil {
		return apperr.Wrap(apperr.KindTransport, "failed to create issue", err)
	}
	return nil
}

func (r *IssueRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	var issue models.Issue
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&issue)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.Newf(apperr.KindNotFound, "issue %s not found", id.Hex())
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "failed to retrieve issue", err)
	}
	return &issue, nil
}

func (f IssueFilter) query() bson.M {
	query := bson.M{}
	if f.Category != "" && f.Category != "all" {
		query["category"] = f.Category
	}
	if f.Status != "" && f.Status != "all" {
		query["status"] = f.Status
	}
	if f.Search != "" {
		query["$or"] = []bson.M{
			{"title": bson.M{"$regex": f.Search, "$options": "i"}},
			{"description": bson.M{"$regex": f.Search, "$options": "i"}},
		}
	}
	if f.CreatedBy != nil {
		query["createdBy"] = *f.CreatedBy
	}
	if f.HasLocation {
		query["lat"] = bson.M{"$exists": true, "$ne": nil}
		query["lng"] = bson.M{"$exists": true, "$ne": nil}
	}
	return query
}

func (r *IssueRepository) Find(ctx context.Context, f IssueFilter) ([]models.Issue, error) {
	sortDir := -1
	if f.OldestFirst {
		sortDir = 1
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: sortDir}})
	if f.Skip > 0 {
		findOptions.SetSkip(f.Skip)
	}
	if f.Limit > 0 {
		findOptions.SetLimit(f.Limit)
	}

	cursor, err := r.col.Find(ctx, f.query(), findOptions)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "failed to list issues", err)
	}
	defer cursor.Close(ctx)

	var issues []models.Issue
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "failed to decode issues", err)
	}
	return issues, nil
}

func (r *IssueRepository) Count(ctx context.Context, f IssueFilter) (int64, error) {
	count, err := r.col.CountDocuments(ctx, f.query())
	if err != nil {
		return 0, apperr.Wrap(apperr.KindTransport, "failed to count issues", err)
	}
	return count, nil
}

// ApplyTransition persists a validated transition patch as a targeted
// update, leaving every unspecified field untouched, and returns the
// updated document.
func (r *IssueRepository) ApplyTransition(ctx context.Context, id primitive.ObjectID, patch lifecycle.TransitionPatch) (*models.Issue, error) {
	set := bson.M{"status": patch.Status, "updatedAt": time.Now()}
	switch patch.Status {
	case models.StatusInProgress:
		if patch.ProgressFileID != nil {
			set["progressFileId"] = *patch.ProgressFileID
		}
		if patch.OfficialNote != nil {
			set["officialNote"] = *patch.OfficialNote
		}
	case models.StatusResolved:
		if patch.ConfirmationFileID != nil {
			set["confirmationFileId"] = *patch.ConfirmationFileID
		}
	case models.StatusRejected:
		if patch.OfficialNote != nil {
			set["officialNote"] = *patch.OfficialNote
		}
	}

	after := options.After
	opts := options.FindOneAndUpdate().SetReturnDocument(after)

	var updated models.Issue
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.Newf(apperr.KindNotFound, "issue %s not found", id.Hex())
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "failed to update issue status", err)
	}
	return &updated, nil
}

func (r *IssueRepository) SetVotes(ctx context.Context, id primitive.ObjectID, votes int) error {
	update := bson.M{"$set": bson.M{"votes": votes, "updatedAt": time.Now()}}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return apperr.Wrap(apperr.KindTransport, "failed to update vote counter", err)
	}
	if res.MatchedCount == 0 {
		return apperr.Newf(apperr.KindNotFound, "issue %s not found", id.Hex())
	}
	return nil
}

func (r *IssueRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.Wrap(apperr.KindTransport, "failed to delete issue", err)
	}
	if res.DeletedCount == 0 {
		return apperr.Newf(apperr.KindNotFound, "issue %s not found", id.Hex())
	}
	return nil
}

func (r *IssueRepository) CountsByCategory(ctx context.Context) ([]CategoryCount, error) {
	pipeline := []bson.M{
		{"$group": bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}},
		{"$project": bson.M{"name": "$_id", "value": "$count", "_id": 0}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "failed to aggregate categories", err)
	}
	defer cursor.Close(ctx)

	var counts []CategoryCount
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "failed to decode category counts", err)
	}
	return counts, nil
}

func (r *IssueRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	count, err := r.col.CountDocuments(ctx, bson.M{
		"createdAt": bson.M{"$gte": from, "$lt": to},
	})
	if err != nil {
		return 0, apperr.Wrap(apperr.KindTransport, "failed to count issues by date", err)
	}
	return count, nil
}

func (r *IssueRepository) CountByStatus(ctx context.Context, statuses ...models.IssueStatus) (int64, error) {
	count, err := r.col.CountDocuments(ctx, bson.M{"status": bson.M{"$in": statuses}})
	if err != nil {
		return 0, apperr.Wrap(apperr.KindTransport, "failed to count issues by status", err)
	}
	return count, nil
}
