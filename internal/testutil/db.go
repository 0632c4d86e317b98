// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"townsquare/internal/infra"
)

// NewDB returns a migrated in-memory SQLite database.
//
// The pool is capped at one connection: SQLite has no row locks, so this is
// what serializes concurrent transactions the way SELECT ... FOR UPDATE does
// on postgres. Code under test must therefore never use the root *gorm.DB
// while it holds a transaction.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := infra.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}
