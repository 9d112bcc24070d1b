package runstore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/actimerge/schema"
)

func TestMigrate_NoneBackend(t *testing.T) {
	err := Migrate(schema.NoneBackend, "", -1, &bytes.Buffer{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "migrations are not supported for NoneBackend")
}

func TestMigrate_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_migration.db")
	var out bytes.Buffer

	require.NoError(t, Migrate(schema.SQLiteBackend, dbPath, -1, &out))
	assert.Contains(t, out.String(), "to version 2")

	_, err := os.Stat(dbPath)
	assert.NoError(t, err)

	out.Reset()
	require.NoError(t, Migrate(schema.SQLiteBackend, dbPath, -1, &out))
	assert.Contains(t, out.String(), "already at the latest version")

	require.NoError(t, Migrate(schema.SQLiteBackend, dbPath, 1, &out))
	db, err := openDB(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	version, err := SchemaVersion(db, schema.SQLiteBackend)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	require.NoError(t, db.Close())

	require.NoError(t, Migrate(schema.SQLiteBackend, dbPath, 0, &out))
	require.NoError(t, Migrate(schema.SQLiteBackend, dbPath, LatestVersion, &out))

	err = Migrate(schema.SQLiteBackend, dbPath, 9, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrInvalidInput)
}

func TestMigrate_SQLiteInMemory(t *testing.T) {
	require.NoError(t, Migrate(schema.SQLiteBackend, ":memory:", -1, &bytes.Buffer{}))
}

func TestMigrationsEmbedded(t *testing.T) {
	for backend, dir := range migrationDir {
		entries, err := migrationsFS.ReadDir(dir)
		require.NoError(t, err, backend)
		assert.Len(t, entries, 2*LatestVersion, backend)
	}
}
