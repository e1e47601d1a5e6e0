package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cjdquick/putaway-service/internal/domain"
	"github.com/cjdquick/putaway-service/pkg/logging"
	pkgmongo "github.com/cjdquick/putaway-service/pkg/mongodb"
	"github.com/cjdquick/putaway-service/pkg/tenant"
)

const binCollection = "bins"

// BinRepository implements domain.BinRepository on MongoDB. Capacity
// mutations are single conditional updates so two tasks can never reserve
// the same free space.
type BinRepository struct {
	collection *pkgmongo.CircuitBreakerCollection
	logger     *logging.Logger
}

// NewBinRepository creates a new BinRepository
func NewBinRepository(client *pkgmongo.CircuitBreakerClient, logger *logging.Logger) *BinRepository {
	repo := &BinRepository{
		collection: client.Collection(binCollection),
		logger:     logger,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *BinRepository) ensureIndexes(ctx context.Context) {
	indexes := append(tenant.Indexes(),
		mongo.IndexModel{
			Keys:    bson.D{{Key: "companyId", Value: 1}, {Key: "locationId", Value: 1}, {Key: "binId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		mongo.IndexModel{Keys: bson.D{{Key: "companyId", Value: 1}, {Key: "locationId", Value: 1}, {Key: "binCode", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "companyId", Value: 1}, {Key: "locationId", Value: 1}, {Key: "active", Value: 1}, {Key: "zone", Value: 1}}},
	)
	if _, err := r.collection.CreateIndexes(ctx, indexes); err != nil && r.logger != nil {
		r.logger.WithError(err).Warn("Failed to create bin indexes")
	}
}

// FindByID retrieves a bin within the scope
func (r *BinRepository) FindByID(ctx context.Context, scope *tenant.Scope, binID string) (*domain.Bin, error) {
	var bin domain.Bin
	err := r.collection.FindOne(ctx, scope.FilterWith(bson.M{"binId": binID})).Decode(&bin)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find bin: %w", err)
	}
	return &bin, nil
}

// FindCandidates retrieves active bins with free capacity, ordered by bin
// code so ranking over unchanged state is stable.
func (r *BinRepository) FindCandidates(ctx context.Context, scope *tenant.Scope, limit int) ([]domain.Bin, error) {
	filter := scope.FilterWith(bson.M{
		"active": true,
		"$expr":  bson.M{"$gt": bson.A{freeCapacityExpr(), 0}},
	})

	opts := options.Find().
		SetSort(pkgmongo.SortAscending("binCode")).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find candidate bins: %w", err)
	}
	defer cursor.Close(ctx)

	var bins []domain.Bin
	if err := cursor.All(ctx, &bins); err != nil {
		return nil, fmt.Errorf("failed to decode bins: %w", err)
	}
	return bins, nil
}

// Reserve adds a capacity reservation. The free-capacity check and the
// increment are one conditional update; no match means the bin is gone,
// inactive, or cannot hold the quantity.
func (r *BinRepository) Reserve(ctx context.Context, scope *tenant.Scope, binID string, quantity int) error {
	filter := scope.FilterWith(bson.M{
		"binId":  binID,
		"active": true,
		"$expr":  bson.M{"$gte": bson.A{freeCapacityExpr(), quantity}},
	})

	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"reservedQuantity": quantity}})
	if err != nil {
		return fmt.Errorf("failed to reserve bin capacity: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrBinCapacityExceeded
	}
	return nil
}

// Release removes a capacity reservation. The reservation never goes
// negative: when less than the requested quantity is held, the remainder
// is drained to zero.
func (r *BinRepository) Release(ctx context.Context, scope *tenant.Scope, binID string, quantity int) error {
	filter := scope.FilterWith(bson.M{
		"binId":            binID,
		"reservedQuantity": bson.M{"$gte": quantity},
	})

	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"reservedQuantity": -quantity}})
	if err != nil {
		return fmt.Errorf("failed to release bin capacity: %w", err)
	}
	if res.MatchedCount == 0 {
		_, err := r.collection.UpdateOne(ctx,
			scope.FilterWith(bson.M{"binId": binID}),
			bson.M{"$set": bson.M{"reservedQuantity": 0}},
		)
		if err != nil {
			return fmt.Errorf("failed to drain bin reservation: %w", err)
		}
	}
	return nil
}

// Place converts stock into bin occupancy. When the stock lands in the bin
// it was reserved on, the release and the placement are one update whose
// capacity guard accounts for the freed reservation. Otherwise the planned
// reservation is released first and the target bin checked on its own.
func (r *BinRepository) Place(ctx context.Context, scope *tenant.Scope, placeBinID, skuID string, quantity int, reservedBinID string, releaseQty int) error {
	contentsField := "contents." + skuID

	if reservedBinID == placeBinID && releaseQty > 0 {
		filter := scope.FilterWith(bson.M{
			"binId":  placeBinID,
			"active": true,
			"$expr": bson.M{"$gte": bson.A{
				bson.M{"$add": bson.A{freeCapacityExpr(), releaseQty}},
				quantity,
			}},
		})
		update := bson.M{"$inc": bson.M{
			"currentQuantity":  quantity,
			"reservedQuantity": -releaseQty,
			contentsField:      quantity,
		}}

		res, err := r.collection.UpdateOne(ctx, filter, update)
		if err != nil {
			return fmt.Errorf("failed to place stock: %w", err)
		}
		if res.MatchedCount == 0 {
			return domain.ErrBinCapacityExceeded
		}
		return nil
	}

	if reservedBinID != "" && releaseQty > 0 {
		if err := r.Release(ctx, scope, reservedBinID, releaseQty); err != nil {
			return err
		}
	}

	filter := scope.FilterWith(bson.M{
		"binId":  placeBinID,
		"active": true,
		"$expr":  bson.M{"$gte": bson.A{freeCapacityExpr(), quantity}},
	})
	update := bson.M{"$inc": bson.M{
		"currentQuantity": quantity,
		contentsField:     quantity,
	}}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to place stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrBinCapacityExceeded
	}
	return nil
}

// freeCapacityExpr is the aggregation expression for a bin's unoccupied,
// unreserved capacity.
func freeCapacityExpr() bson.M {
	return bson.M{"$subtract": bson.A{
		"$capacity",
		bson.M{"$add": bson.A{"$currentQuantity", "$reservedQuantity"}},
	}}
}
