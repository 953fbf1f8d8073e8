package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Vote represents a citizen's endorsement of an issue. At most one vote
// exists per (issue, user) pair, enforced by a unique compound index.
type Vote struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Issue   primitive.ObjectID `bson:"issue" json:"issue"`
	User    primitive.ObjectID `bson:"user" json:"user"`
	VotedAt time.Time          `bson:"votedAt" json:"votedAt"`
}

// EnsureVoteIndex creates the unique compound index for (issue, user)
func EnsureVoteIndex(collection *mongo.Collection) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "issue", Value: 1}, {Key: "user", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	_, err := collection.Indexes().CreateOne(ctx, indexModel)
	return err
}
