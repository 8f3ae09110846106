// Package testdb opens isolated in-memory databases for tests.
package testdb

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/resale_shop/internal/models"
)

var seq atomic.Int64

func New(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", name, seq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func SeedUser(t testing.TB, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Name: "Test User", Email: email, PasswordHash: "x"}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedProduct(t testing.TB, db *gorm.DB, name, price string) *models.Product {
	t.Helper()
	p := &models.Product{
		VendorID:      1,
		Name:          name,
		Condition:     "like new",
		Size:          "M",
		Images:        name + ".jpg",
		PurchasePrice: decimal.RequireFromString(price).Div(decimal.NewFromInt(2)),
		SellingPrice:  decimal.RequireFromString(price),
		Status:        models.ProductApproved,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func SetPrice(t testing.TB, db *gorm.DB, productID uint, price string) {
	t.Helper()
	if err := db.Model(&models.Product{}).Where("id = ?", productID).
		Update("selling_price", decimal.RequireFromString(price)).Error; err != nil {
		t.Fatalf("set price: %v", err)
	}
}
