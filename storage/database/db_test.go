package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simagang/simagang/storage/database"
)

func TestMigrations(t *testing.T) {
	ctx := context.Background()
	db, err := sqlx.Open(database.EngineSQLite, database.SQLiteDSN(filepath.Join(t.TempDir(), "migrate.db")))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, database.Migrate(ctx, db, database.EngineSQLite))
	latest, err := database.Version(ctx, db, database.EngineSQLite)
	require.NoError(t, err)
	assert.Equal(t, int64(6), latest)

	// migrating again is a no-op
	require.NoError(t, database.Migrate(ctx, db, database.EngineSQLite))

	require.NoError(t, database.Rollback(ctx, db, database.EngineSQLite))
	v, err := database.Version(ctx, db, database.EngineSQLite)
	require.NoError(t, err)
	assert.Equal(t, latest-1, v)

	var n int
	err = db.GetContext(ctx, &n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'assessments'`)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, database.Migrate(ctx, db, database.EngineSQLite))
	v, err = database.Version(ctx, db, database.EngineSQLite)
	require.NoError(t, err)
	assert.Equal(t, latest, v)
}

func TestSQLiteDSN(t *testing.T) {
	dsn := database.SQLiteDSN("/tmp/x.db")
	assert.Contains(t, dsn, "/tmp/x.db")
	assert.Contains(t, dsn, "foreign_keys")
}
