package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentd/internal/platform/config"
)

func TestConnect_NotConfigured(t *testing.T) {
	client, err := Connect(context.Background(), config.MongoConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}
