package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chaintex/trade-processor/pkg/mongo"
)

// TradeStats stores the aggregated partner trade rows.
type TradeStats struct {
	col          *mgo.Collection
	queryTimeout time.Duration
}

func NewTradeStats(client *mongo.Client) *TradeStats {
	return &TradeStats{
		col:          client.Database().Collection("tradestats"),
		queryTimeout: client.QueryTimeout(),
	}
}

// ReplaceAll deletes every row of the given category and inserts the fresh
// set. No transaction wraps delete+insert: the collection is briefly empty
// during the replace window, and the prior set survives a failed fetch
// because the caller never reaches this method on upstream errors.
func (t *TradeStats) ReplaceAll(ctx context.Context, category string, items []TradeStat) error {
	if _, err := t.col.DeleteMany(ctx, bson.M{"type": category}); err != nil {
		return fmt.Errorf("failed to delete %s trade stats: %w", category, err)
	}

	if len(items) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(items))

	now := time.Now()
	for _, item := range items {
		item.Type = category
		item.CreatedAt = now
		docs = append(docs, item)
	}

	if _, err := t.col.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert %s trade stats: %w", category, err)
	}

	return nil
}

// Count returns the number of rows of the given category.
func (t *TradeStats) Count(ctx context.Context, category string) (int64, error) {
	total, err := t.col.CountDocuments(ctx, bson.M{"type": category})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s trade stats: %w", category, err)
	}

	return total, nil
}

// List returns one page of rows sorted by volume descending.
func (t *TradeStats) List(ctx context.Context, category string, offset, limit int64) ([]TradeStat, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "volume", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit).
		SetMaxTime(t.queryTimeout)

	cur, err := t.col.Find(ctx, bson.M{"type": category}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s trade stats: %w", category, err)
	}

	defer cur.Close(ctx)

	items := []TradeStat{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s trade stats: %w", category, err)
	}

	return items, nil
}
