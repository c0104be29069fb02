package external

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// TickerClient calls the price-ticker API whose body is proxied verbatim by
// GET /setting/usd.
type TickerClient struct {
	log  logrus.FieldLogger
	http *resty.Client
	url  string
}

func NewTickerClient(log logrus.FieldLogger, config *Config) *TickerClient {
	return &TickerClient{
		log:  log.WithField("component", "ticker_api"),
		http: resty.New().SetTimeout(config.Timeout),
		url:  config.TickerAPI,
	}
}

// USD fetches the raw ticker body.
func (c *TickerClient) USD(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch usd ticker: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("ticker api returned status %d", resp.StatusCode())
	}

	return json.RawMessage(resp.Body()), nil
}
