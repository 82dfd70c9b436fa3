package infra

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinvault/coinvault/internal/config"
	"github.com/coinvault/coinvault/internal/logging"
)

func TestOpenConnectsConfiguredRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Config{StoreBackend: config.BackendMemory, RedisURL: "redis://" + mr.Addr()}

	conns, err := Open(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer conns.Close(context.Background(), logging.Discard())

	require.NotNil(t, conns.Cache)
	assert.Nil(t, conns.DB)
	assert.Nil(t, conns.Mongo)
	assert.Nil(t, conns.NATS)
	assert.NoError(t, conns.Cache.Ping(context.Background()).Err())
}

func TestOpenFailsWithoutRequiredURL(t *testing.T) {
	for _, backend := range []string{config.BackendPostgres, config.BackendMongo} {
		_, err := Open(context.Background(), config.Config{StoreBackend: backend}, logging.Discard())
		assert.Error(t, err, backend)
	}
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestMigrationsAreEmbedded(t *testing.T) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	raw, err := fs.ReadFile(migrations, names[0])
	require.NoError(t, err)
	sql := string(raw)
	assert.True(t, strings.HasPrefix(sql, "-- +goose Up"))
	for _, table := range []string{"users", "asset_accounts", "transactions"} {
		assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+table)
	}
}
