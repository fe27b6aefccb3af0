package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentmark/internal/slogutil"
)

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "content.db")
	db, err := Open(context.Background(), DriverSQLite, path, slogutil.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, path
}

func TestOpenCreatesDatabase(t *testing.T) {
	db, path := openTestDB(t)

	assert.FileExists(t, path)
	assert.Equal(t, DriverSQLite, db.Driver())

	version, err := db.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion(), version)
}

func TestOpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "content.db")

	first, err := Open(ctx, DriverSQLite, path, nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(ctx, DriverSQLite, path, nil)
	require.NoError(t, err)
	defer second.Close()

	var rows int
	require.NoError(t, second.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x", nil)
	assert.ErrorContains(t, err, "unsupported database driver")

	_, err = Open(context.Background(), DriverSQLite, "", nil)
	assert.Error(t, err)
}

func TestRebindDollar(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{"SELECT '?' FROM t WHERE a = ?", "SELECT '?' FROM t WHERE a = $1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rebindDollar(tt.in))
	}
}

func TestRebindOnlyForPostgres(t *testing.T) {
	sqlite := &DB{driver: DriverSQLite}
	pg := &DB{driver: DriverPostgres}

	assert.Equal(t, "a = ?", sqlite.rebind("a = ?"))
	assert.Equal(t, "a = $1", pg.rebind("a = ?"))
}

func TestWithTxRollsBack(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", 99); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	version, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion(), version)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&n))
	assert.Equal(t, 1, n)
}
