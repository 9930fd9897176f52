package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// healthTimeout bounds the readiness probes so a hung server cannot hold a
// health endpoint open.
const healthTimeout = 5 * time.Second

// Ping verifies connectivity to the primary.
func (c *Client) Ping(ctx context.Context) error {
	if c.IsClosed() {
		return fmt.Errorf("mongodb: client is closed")
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	client := c.Client()
	if client == nil {
		return fmt.Errorf("mongodb: client is nil")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongodb: ping failed: %w", err)
	}
	return nil
}

// CheckReadiness verifies the database accepts operations, not just pings.
func (c *Client) CheckReadiness(ctx context.Context) error {
	if c.IsClosed() {
		return fmt.Errorf("mongodb: client is closed")
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	db := c.Database()
	if db == nil {
		return fmt.Errorf("mongodb: database is nil")
	}
	if _, err := db.ListCollectionNames(ctx, bson.D{}); err != nil {
		return fmt.Errorf("mongodb: not ready: %w", err)
	}
	return nil
}
