package persistence

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, migrationsDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for _, entry := range entries {
		content, err := fs.ReadFile(migrationFiles, migrationsDir+"/"+entry.Name())
		require.NoError(t, err)
		body := string(content)
		assert.True(t, strings.HasPrefix(body, "-- +goose Up"), entry.Name())
		assert.Contains(t, body, "-- +goose Down", entry.Name())
	}
}

func TestNilHandles(t *testing.T) {
	var pg *Postgres
	assert.Nil(t, pg.PoolHandle())
	assert.Error(t, pg.Ping(context.Background()))
	pg.Close()

	var r *Redis
	assert.Error(t, r.Ping(context.Background()))
	r.Close()

	var m *Mongo
	assert.Error(t, m.Ping(context.Background()))
	m.Close()
}
