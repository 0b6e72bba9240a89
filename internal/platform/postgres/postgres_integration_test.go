//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentd/internal/platform/config"
	"consentd/internal/platform/postgres"
	"consentd/pkg/testutil/containers"
)

func TestOpen_AppliesPoolSettings(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pc := containers.GetManager().GetPostgres(t)

	db, err := postgres.Open(context.Background(), config.PostgresConfig{
		URL:             pc.URL,
		MaxOpenConns:    3,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 3, db.Stats().MaxOpenConnections)
}
