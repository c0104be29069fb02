package external

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// ScanTx is one transaction entry from the scan list endpoint.
type ScanTx struct {
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	BlockNumber     uint64 `json:"blockNumber"`
	Timestamp       int64  `json:"timestamp"`
	InternalTxCount int64  `json:"i_tx_count"`
}

// InternalTx is one entry from the internal-transaction detail endpoint.
type InternalTx struct {
	Hash  string `json:"hash"`
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

type txListResponse struct {
	Total int64    `json:"total"`
	Items []ScanTx `json:"items"`
}

type internalTxResponse struct {
	Items []InternalTx `json:"items"`
}

// ScanClient calls the third-party scan API for the configured exchange
// address.
type ScanClient struct {
	log     logrus.FieldLogger
	http    *resty.Client
	baseURL string
	address string
}

func NewScanClient(log logrus.FieldLogger, config *Config) *ScanClient {
	return &ScanClient{
		log:     log.WithField("component", "scan_api"),
		http:    resty.New().SetTimeout(config.Timeout),
		baseURL: config.ScanAPI,
		address: config.Address,
	}
}

// Transactions fetches one page of the address's transaction list and the
// remote total item count.
func (c *ScanClient) Transactions(ctx context.Context, page, limit int64) (int64, []ScanTx, error) {
	var out txListResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"address":    c.address,
			"tx_account": "in",
			"page":       strconv.FormatInt(page, 10),
			"limit":      strconv.FormatInt(limit, 10),
		}).
		SetResult(&out).
		Get(c.baseURL + "/api/txs")
	if err != nil {
		return 0, nil, fmt.Errorf("failed to fetch scan txs page %d: %w", page, err)
	}

	if resp.IsError() {
		return 0, nil, fmt.Errorf("scan api returned status %d for page %d", resp.StatusCode(), page)
	}

	return out.Total, out.Items, nil
}

// PageCount probes the list endpoint with page=2&limit=1 to read the remote
// total, then derives the page count for the given page size.
func (c *ScanClient) PageCount(ctx context.Context, perPage int64) (int64, error) {
	total, _, err := c.Transactions(ctx, 2, 1)
	if err != nil {
		return 0, err
	}

	if total <= 0 {
		return 0, nil
	}

	return (total + perPage - 1) / perPage, nil
}

// InternalTransactions fetches the internal-transaction list of a
// transaction.
func (c *ScanClient) InternalTransactions(ctx context.Context, hash string) ([]InternalTx, error) {
	var out internalTxResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(c.baseURL + "/api/txs/" + hash + "/internal")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch internal txs of %s: %w", hash, err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("scan api returned status %d for tx %s", resp.StatusCode(), hash)
	}

	return out.Items, nil
}
