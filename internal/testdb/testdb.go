// Package testdb opens throwaway in-memory databases for service and
// repository tests.
package testdb

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"classquiz/internal/models"
)

// New returns a migrated in-memory sqlite database. A single connection keeps
// the :memory: database alive for the whole test.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.Question{},
		&models.Option{},
		&models.Group{},
		&models.Assignment{},
		&models.Attempt{},
		&models.AttemptAnswer{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db
}
