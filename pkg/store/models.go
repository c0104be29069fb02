package store

import "time"

// Setting is a named progress cursor or feature flag. One row per key.
type Setting struct {
	Key   string `bson:"meta_key" json:"meta_key"`
	Value string `bson:"meta_value" json:"meta_value"`
	Pages int64  `bson:"meta_pages,omitempty" json:"meta_pages,omitempty"`
}

// TradeStat is one aggregated partner trade row. The CONST set is fully
// replaced on every partner sync cycle.
type TradeStat struct {
	Type      string    `bson:"type" json:"-"`
	From      string    `bson:"from" json:"from"`
	Volume    float64   `bson:"volume" json:"volume"`
	Txs       int64     `bson:"txs,omitempty" json:"txs"`
	CreatedAt time.Time `bson:"createdAt,omitempty" json:"-"`
}

// Tx is a transaction record upserted by hash. RealValue is the normalized
// value in token units, preferring the top-level value and falling back to
// the first internal transaction value when the top-level value is zero.
type Tx struct {
	Hash            string    `bson:"hash" json:"hash"`
	From            string    `bson:"from" json:"from"`
	To              string    `bson:"to" json:"to"`
	Value           string    `bson:"value" json:"value"`
	InternalValue   string    `bson:"internalValue" json:"internalValue"`
	RealValue       float64   `bson:"realValue" json:"realValue"`
	BlockNumber     uint64    `bson:"blockNumber" json:"blockNumber"`
	Timestamp       time.Time `bson:"timestamp" json:"timestamp"`
	IsPending       bool      `bson:"isPending" json:"isPending"`
	InternalTxCount int64     `bson:"internalTxCount" json:"internalTxCount"`
	CreatedAt       time.Time `bson:"createdAt,omitempty" json:"createdAt"`
}

// Account carries the counters and flags maintained by the chain-sync
// subsystem. Read-only here.
type Account struct {
	Hash          string  `bson:"hash" json:"hash"`
	Status        bool    `bson:"status" json:"status"`
	Balance       string  `bson:"balance" json:"balance"`
	BalanceNumber float64 `bson:"balanceNumber" json:"balanceNumber"`
	IsToken       bool    `bson:"isToken" json:"isToken"`
	IsContract    bool    `bson:"isContract" json:"isContract"`
	InTxCount     int64   `bson:"inTxCount" json:"inTxCount"`
	OutTxCount    int64   `bson:"outTxCount" json:"outTxCount"`
	TotalTxCount  int64   `bson:"totalTxCount" json:"totalTxCount"`
}

// Block is a crawled block header summary. Read-only here.
type Block struct {
	Number    uint64    `bson:"number" json:"number"`
	Hash      string    `bson:"hash" json:"hash"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// SpecialAccount holds precomputed global counters, e.g. the total
// transaction count under hash "transaction".
type SpecialAccount struct {
	Hash  string `bson:"hash" json:"hash"`
	Total int64  `bson:"total" json:"total"`
}
