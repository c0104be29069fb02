// Package store implements the MongoDB collections owned by this service:
// settings (progress cursors and feature flags), trade statistics and
// transaction records, plus read-only access to the chain-sync collections.
package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chaintex/trade-processor/pkg/mongo"
)

// Settings is the key-value cursor store. Writers race last-write-wins;
// a single producer process is expected to own any given key.
type Settings struct {
	col *mgo.Collection
}

func NewSettings(client *mongo.Client) *Settings {
	return &Settings{
		col: client.Database().Collection("settings"),
	}
}

// EnsureIndexes creates the unique index on meta_key.
func (s *Settings) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mgo.IndexModel{
		Keys:    bson.D{{Key: "meta_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create settings index: %w", err)
	}

	return nil
}

// GetOrCreate returns the setting for key, atomically creating it with the
// default value when absent.
func (s *Settings) GetOrCreate(ctx context.Context, key, defaultValue string) (*Setting, error) {
	filter := bson.M{"meta_key": key}
	update := bson.M{"$setOnInsert": bson.M{"meta_key": key, "meta_value": defaultValue}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var setting Setting
	if err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&setting); err != nil {
		return nil, fmt.Errorf("failed to get or create setting %s: %w", key, err)
	}

	return &setting, nil
}

// Get returns the setting for key, or nil when absent.
func (s *Settings) Get(ctx context.Context, key string) (*Setting, error) {
	var setting Setting

	err := s.col.FindOne(ctx, bson.M{"meta_key": key}).Decode(&setting)
	if err == mgo.ErrNoDocuments {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get setting %s: %w", key, err)
	}

	return &setting, nil
}

// Set persists a scalar value for key, creating the row when absent.
func (s *Settings) Set(ctx context.Context, key, value string) error {
	filter := bson.M{"meta_key": key}
	update := bson.M{"$set": bson.M{"meta_value": value}}

	if _, err := s.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}

	return nil
}

// SetPage persists a page cursor: value is the last synced page, pages the
// last seen total page count.
func (s *Settings) SetPage(ctx context.Context, key, value string, pages int64) error {
	filter := bson.M{"meta_key": key}
	update := bson.M{"$set": bson.M{"meta_value": value, "meta_pages": pages}}

	if _, err := s.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to set page cursor %s: %w", key, err)
	}

	return nil
}
