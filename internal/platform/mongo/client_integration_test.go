//go:build integration

package mongo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentd/internal/platform/config"
	"consentd/internal/platform/mongo"
	"consentd/pkg/testutil/containers"
)

func TestConnect_SelectsDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	mc := containers.GetManager().GetMongo(t)
	ctx := context.Background()

	client, err := mongo.Connect(ctx, config.MongoConfig{
		URI:            mc.URI,
		Database:       "consentd_platform",
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	defer client.Close(ctx)

	assert.Equal(t, "consentd_platform", client.Database.Name())
	assert.NoError(t, client.Health(ctx))
}
