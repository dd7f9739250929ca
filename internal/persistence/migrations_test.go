package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNames_Sorted(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_users_areas.sql", names[0])

	content, err := migrationFiles.ReadFile("migrations/" + names[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "CREATE TABLE IF NOT EXISTS areas")
}

func TestUnconfiguredHandlesFailPing(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, (*Postgres)(nil).Ping(ctx))
	assert.Error(t, (*Mongo)(nil).Ping(ctx))
	assert.Error(t, (*Redis)(nil).Ping(ctx))
	assert.Nil(t, (*Postgres)(nil).PoolHandle())
}
