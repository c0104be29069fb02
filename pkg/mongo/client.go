// Package mongo wraps the MongoDB client used as the document store for
// settings, trade statistics and transaction records.
package mongo

import (
	"context"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Client holds the connection and the configured database handle.
type Client struct {
	log    logrus.FieldLogger
	config *Config
	client *mgo.Client
	db     *mgo.Database
}

// New connects to MongoDB with exponential backoff so the process can wait
// for the store to become available at startup.
func New(ctx context.Context, log logrus.FieldLogger, config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mongo config: %w", err)
	}

	c := &Client{
		log:    log.WithField("component", "mongo"),
		config: config,
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 2 * time.Minute

	attempt := 0

	operation := func() error {
		attempt++

		if err := c.connect(ctx); err != nil {
			c.log.WithError(err).WithField("attempt", attempt).Warn("Failed to connect to mongo, will retry")

			return err
		}

		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("failed to connect to mongo at %s: %w", config.URI, err)
	}

	if attempt > 1 {
		c.log.WithField("attempts", attempt).Info("Connected to mongo after retries")
	}

	return c, nil
}

func (c *Client) connect(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	client, err := mgo.Connect(connectCtx, options.Client().ApplyURI(c.config.URI))
	if err != nil {
		return err
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())

		return err
	}

	c.client = client
	c.db = client.Database(c.config.Database)

	return nil
}

// Database returns the configured database handle.
func (c *Client) Database() *mgo.Database {
	return c.db
}

// QueryTimeout returns the configured per-query time limit.
func (c *Client) QueryTimeout() time.Duration {
	return c.config.QueryTimeout
}

// Close disconnects the client. Must be called at termination time.
func (c *Client) Close(ctx context.Context) error {
	if c.client == nil {
		return nil
	}

	return c.client.Disconnect(ctx)
}
