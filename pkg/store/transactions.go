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

// Sort modes for the grouped trade leaderboard.
const (
	SortByVolume = "volume"
	SortByTxs    = "txs"
)

// GroupQuery bounds the grouped-by-sender aggregation.
type GroupQuery struct {
	Address  string
	MinValue float64
	From     time.Time
	To       time.Time
	SortBy   string
	Offset   int64
	Limit    int64
}

// TradeRow is one leaderboard entry produced by the group aggregation.
type TradeRow struct {
	From   string  `json:"from"`
	Volume float64 `json:"volume"`
	Txs    int64   `json:"txs"`
}

// Transactions stores the normalized transaction records.
type Transactions struct {
	col          *mgo.Collection
	queryTimeout time.Duration
}

func NewTransactions(client *mongo.Client) *Transactions {
	return &Transactions{
		col:          client.Database().Collection("txs"),
		queryTimeout: client.QueryTimeout(),
	}
}

// EnsureIndexes creates the unique index on hash.
func (t *Transactions) EnsureIndexes(ctx context.Context) error {
	_, err := t.col.Indexes().CreateOne(ctx, mgo.IndexModel{
		Keys:    bson.D{{Key: "hash", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create txs index: %w", err)
	}

	return nil
}

// Upsert merges a transaction by hash. Re-processing a page is safe.
func (t *Transactions) Upsert(ctx context.Context, tx *Tx) error {
	filter := bson.M{"hash": tx.Hash}
	update := bson.M{
		"$set": bson.M{
			"from":            tx.From,
			"to":              tx.To,
			"value":           tx.Value,
			"internalValue":   tx.InternalValue,
			"realValue":       tx.RealValue,
			"blockNumber":     tx.BlockNumber,
			"timestamp":       tx.Timestamp,
			"isPending":       tx.IsPending,
			"internalTxCount": tx.InternalTxCount,
		},
		"$setOnInsert": bson.M{
			"hash":      tx.Hash,
			"createdAt": time.Now(),
		},
	}

	if _, err := t.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to upsert tx %s: %w", tx.Hash, err)
	}

	return nil
}

// SumVolume returns the realValue sum of non-pending transactions to the
// given address within the window.
func (t *Transactions) SumVolume(ctx context.Context, address string, from, to time.Time) (float64, error) {
	match := bson.M{
		"isPending": false,
		"to":        address,
		"timestamp": bson.M{"$gte": from, "$lte": to},
	}

	pipeline := mgo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":    bson.M{"address": "$to"},
			"volume": bson.M{"$sum": "$realValue"},
		}}},
	}

	cur, err := t.col.Aggregate(ctx, pipeline, options.Aggregate().SetMaxTime(t.queryTimeout))
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate volume for %s: %w", address, err)
	}

	defer cur.Close(ctx)

	var rows []struct {
		Volume float64 `bson:"volume"`
	}

	if err := cur.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("failed to decode volume aggregation: %w", err)
	}

	if len(rows) == 0 {
		return 0, nil
	}

	return rows[0].Volume, nil
}

// CountGroups returns the number of distinct senders matching the query.
func (t *Transactions) CountGroups(ctx context.Context, q GroupQuery) (int64, error) {
	pipeline := mgo.Pipeline{
		{{Key: "$match", Value: t.groupMatch(q)}},
		{{Key: "$group", Value: bson.M{"_id": bson.M{"from": "$from"}}}},
		{{Key: "$count", Value: "total"}},
	}

	cur, err := t.col.Aggregate(ctx, pipeline, options.Aggregate().SetMaxTime(t.queryTimeout))
	if err != nil {
		return 0, fmt.Errorf("failed to count sender groups: %w", err)
	}

	defer cur.Close(ctx)

	var rows []struct {
		Total int64 `bson:"total"`
	}

	if err := cur.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("failed to decode group count: %w", err)
	}

	if len(rows) == 0 {
		return 0, nil
	}

	return rows[0].Total, nil
}

// GroupByFrom returns one leaderboard page: volume sum and transaction count
// per sender, sorted by the requested mode.
func (t *Transactions) GroupByFrom(ctx context.Context, q GroupQuery) ([]TradeRow, error) {
	sortField := SortByVolume
	if q.SortBy == SortByTxs {
		sortField = SortByTxs
	}

	pipeline := mgo.Pipeline{
		{{Key: "$match", Value: t.groupMatch(q)}},
		{{Key: "$group", Value: bson.M{
			"_id":    bson.M{"from": "$from"},
			"volume": bson.M{"$sum": "$realValue"},
			"txs":    bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: sortField, Value: -1}}}},
		{{Key: "$skip", Value: q.Offset}},
		{{Key: "$limit", Value: q.Limit}},
	}

	cur, err := t.col.Aggregate(ctx, pipeline, options.Aggregate().SetMaxTime(t.queryTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sender groups: %w", err)
	}

	defer cur.Close(ctx)

	var rows []struct {
		ID struct {
			From string `bson:"from"`
		} `bson:"_id"`
		Volume float64 `bson:"volume"`
		Txs    int64   `bson:"txs"`
	}

	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode sender groups: %w", err)
	}

	items := make([]TradeRow, 0, len(rows))
	for _, row := range rows {
		items = append(items, TradeRow{From: row.ID.From, Volume: row.Volume, Txs: row.Txs})
	}

	return items, nil
}

func (t *Transactions) groupMatch(q GroupQuery) bson.M {
	return bson.M{
		"isPending": false,
		"to":        q.Address,
		"realValue": bson.M{"$gte": q.MinValue},
		"timestamp": bson.M{"$gte": q.From, "$lte": q.To},
	}
}

// Latest returns one page of non-pending transactions sorted by block number
// descending.
func (t *Transactions) Latest(ctx context.Context, offset, limit int64) ([]Tx, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "blockNumber", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit).
		SetMaxTime(t.queryTimeout)

	cur, err := t.col.Find(ctx, bson.M{"isPending": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest txs: %w", err)
	}

	defer cur.Close(ctx)

	items := []Tx{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode latest txs: %w", err)
	}

	return items, nil
}
