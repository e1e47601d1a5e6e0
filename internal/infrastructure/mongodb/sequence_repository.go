package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	pkgmongo "github.com/cjdquick/putaway-service/pkg/mongodb"
)

const sequenceCollection = "sequences"

// SequenceRepository allocates monotonic per-company counters with an atomic
// find-and-increment. Numbers are never reused; a failed task creation leaves
// a gap, which is fine.
type SequenceRepository struct {
	collection *pkgmongo.CircuitBreakerCollection
}

// NewSequenceRepository creates a new SequenceRepository
func NewSequenceRepository(client *pkgmongo.CircuitBreakerClient) *SequenceRepository {
	return &SequenceRepository{
		collection: client.Collection(sequenceCollection),
	}
}

// Next returns the next value of the named sequence for the company
func (r *SequenceRepository) Next(ctx context.Context, companyID, name string) (int64, error) {
	filter := bson.M{"_id": companyID + ":" + name}
	update := bson.M{"$inc": bson.M{"seq": int64(1)}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", name, err)
	}
	return doc.Seq, nil
}
