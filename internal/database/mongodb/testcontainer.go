package mongodb

import (
	"context"
	"log/slog"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// TestContainer holds a MongoDB test container instance.
type TestContainer struct {
	Container *mongodb.MongoDBContainer
	URI       string
}

// SetupTestContainer starts a MongoDB container for the test and registers
// its teardown. Skips the test when no Docker provider is reachable.
func SetupTestContainer(t *testing.T) *TestContainer {
	t.Helper()

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7.0")
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Skipf("skipping: cannot start MongoDB container: %v", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	return &TestContainer{Container: container, URI: uri}
}

// NewTestClient connects a client to the test container.
func (tc *TestContainer) NewTestClient(t *testing.T, database string) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.URI = tc.URI
	cfg.Database = database

	client, err := New(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("failed to create MongoDB client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close(context.Background())
	})
	return client
}
