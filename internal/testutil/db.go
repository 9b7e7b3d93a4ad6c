// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shinyyama/loops-backend/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with every table migrated.
// The pool is pinned to a single connection so concurrent callers serialize
// the way row locks serialize them on MySQL.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// CreateListing inserts an active listing owned by sellerUID.
func CreateListing(t *testing.T, db *gorm.DB, sellerUID string, typ model.ListingType, price int64) *model.Listing {
	t.Helper()

	l := &model.Listing{
		SellerUID: sellerUID,
		Title:     "Desk lamp",
		Price:     price,
		Type:      typ,
		Status:    model.ListingStatusActive,
	}
	if err := db.Create(l).Error; err != nil {
		t.Fatalf("Failed to create listing: %v", err)
	}
	return l
}
