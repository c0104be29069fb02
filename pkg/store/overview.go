package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chaintex/trade-processor/pkg/mongo"
)

// Overview reads the aggregate counters owned by the chain-sync subsystem.
type Overview struct {
	blocks    *mgo.Collection
	accounts  *mgo.Collection
	tokens    *mgo.Collection
	contracts *mgo.Collection
	specials  *mgo.Collection
}

func NewOverview(client *mongo.Client) *Overview {
	db := client.Database()

	return &Overview{
		blocks:    db.Collection("blocks"),
		accounts:  db.Collection("accounts"),
		tokens:    db.Collection("tokens"),
		contracts: db.Collection("contracts"),
		specials:  db.Collection("specialaccounts"),
	}
}

// Totals holds the explorer-wide counters served by GET /setting.
type Totals struct {
	TotalBlock         int64  `json:"totalBlock"`
	TotalAddress       int64  `json:"totalAddress"`
	TotalToken         int64  `json:"totalToken"`
	TotalSmartContract int64  `json:"totalSmartContract"`
	LastBlock          *Block `json:"lastBlock"`
}

// Totals computes the counters. Active accounts and tokens are those with
// status true.
func (o *Overview) Totals(ctx context.Context) (*Totals, error) {
	totalBlock, err := o.blocks.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to count blocks: %w", err)
	}

	totalAddress, err := o.accounts.CountDocuments(ctx, bson.M{"status": true})
	if err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}

	totalToken, err := o.tokens.CountDocuments(ctx, bson.M{"status": true})
	if err != nil {
		return nil, fmt.Errorf("failed to count tokens: %w", err)
	}

	totalContract, err := o.contracts.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to count contracts: %w", err)
	}

	totals := &Totals{
		TotalBlock:         totalBlock,
		TotalAddress:       totalAddress,
		TotalToken:         totalToken,
		TotalSmartContract: totalContract,
	}

	var last Block

	err = o.blocks.FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "number", Value: -1}})).Decode(&last)
	if err != nil && err != mgo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to get last block: %w", err)
	}

	if err == nil {
		totals.LastBlock = &last
	}

	return totals, nil
}

// TotalTransactions returns the precomputed global transaction count, or nil
// when the special account row is absent.
func (o *Overview) TotalTransactions(ctx context.Context) (*int64, error) {
	var sa SpecialAccount

	err := o.specials.FindOne(ctx, bson.M{"hash": "transaction"}).Decode(&sa)
	if err == mgo.ErrNoDocuments {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get special account: %w", err)
	}

	return &sa.Total, nil
}

// Accounts reads the account metadata used to enrich trade listings.
type Accounts struct {
	col *mgo.Collection
}

func NewAccounts(client *mongo.Client) *Accounts {
	return &Accounts{
		col: client.Database().Collection("accounts"),
	}
}

// Get returns the account for hash, or nil when absent.
func (a *Accounts) Get(ctx context.Context, hash string) (*Account, error) {
	var account Account

	err := a.col.FindOne(ctx, bson.M{"hash": hash}).Decode(&account)
	if err == mgo.ErrNoDocuments {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", hash, err)
	}

	return &account, nil
}

// ByHashes returns the accounts for the given hashes keyed by hash.
func (a *Accounts) ByHashes(ctx context.Context, hashes []string) (map[string]Account, error) {
	if len(hashes) == 0 {
		return map[string]Account{}, nil
	}

	cur, err := a.col.Find(ctx, bson.M{"hash": bson.M{"$in": hashes}})
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	defer cur.Close(ctx)

	var accounts []Account
	if err := cur.All(ctx, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}

	byHash := make(map[string]Account, len(accounts))
	for _, account := range accounts {
		byHash[account.Hash] = account
	}

	return byHash, nil
}
