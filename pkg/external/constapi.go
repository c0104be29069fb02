// Package external wraps the upstream HTTP services: the partner CONST
// statistics API, the third-party scan API and the price-ticker API.
package external

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// ConstTradeStat is one referral volume entry from the partner API.
type ConstTradeStat struct {
	ReferralCode string  `json:"ReferralCode"`
	Amount       float64 `json:"Amount"`
}

type constResponse struct {
	Result []ConstTradeStat `json:"Result"`
}

// ConstClient calls the partner CONST statistics API.
type ConstClient struct {
	log  logrus.FieldLogger
	http *resty.Client
	url  string
}

func NewConstClient(log logrus.FieldLogger, config *Config) *ConstClient {
	return &ConstClient{
		log:  log.WithField("component", "const_api"),
		http: resty.New().SetTimeout(config.Timeout),
		url:  config.ConstAPI,
	}
}

// TradeStats fetches the full referral volume list. A nil Result is
// returned as an empty slice.
func (c *ConstClient) TradeStats(ctx context.Context) ([]ConstTradeStat, error) {
	var out constResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch const stats: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("const api returned status %d", resp.StatusCode())
	}

	if out.Result == nil {
		return []ConstTradeStat{}, nil
	}

	return out.Result, nil
}
