// Package chain wraps the execution node RPC client. Only finalized block
// data is read; no consensus rules are reproduced here.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

type Client struct {
	log     logrus.FieldLogger
	eth     *ethclient.Client
	chainID *big.Int
	signer  types.Signer
}

// Dial connects to the execution node and caches the chain ID for sender
// recovery.
func Dial(ctx context.Context, log logrus.FieldLogger, config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chain config: %w", err)
	}

	eth, err := ethclient.DialContext(ctx, config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial execution node %s: %w", config.Endpoint, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()

		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	return &Client{
		log:     log.WithField("component", "chain"),
		eth:     eth,
		chainID: chainID,
		signer:  types.LatestSignerForChainID(chainID),
	}, nil
}

// BlockNumber returns the current chain head number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// BlockByNumber returns the finalized block at the given height.
func (c *Client) BlockByNumber(ctx context.Context, number uint64) (*types.Block, error) {
	return c.eth.BlockByNumber(ctx, new(big.Int).SetUint64(number))
}

// Sender recovers the from address of a transaction.
func (c *Client) Sender(tx *types.Transaction) (common.Address, error) {
	return types.Sender(c.signer, tx)
}

func (c *Client) Close() {
	c.eth.Close()
}
