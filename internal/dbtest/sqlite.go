// Package dbtest opens throwaway SQLite databases with the full schema.
package dbtest

import (
	"testing"

	"crowdfund_system/internal/db"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated in-memory database with foreign keys enforced.
// The pool holds a single connection, so concurrent transactions queue
// behind each other instead of failing with SQLITE_BUSY.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := db.Config()
	cfg.Logger = logger.Default.LogMode(logger.Silent) // Quiet during tests
	gdb, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), cfg)
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

// Create inserts each value and fails the test on error
func Create(t testing.TB, gdb *gorm.DB, values ...any) {
	t.Helper()
	for _, v := range values {
		require.NoError(t, gdb.Create(v).Error)
	}
}

// Count returns the number of rows of model matching the optional condition
func Count(t testing.TB, gdb *gorm.DB, model any, conds ...any) int64 {
	t.Helper()
	var n int64
	q := gdb.Model(model)
	if len(conds) > 0 {
		q = q.Where(conds[0], conds[1:]...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
