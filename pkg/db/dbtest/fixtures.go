package dbtest

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
	"github.com/angelmondragon/pieshop-backend/pkg/enums"
)

var fixtureEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// CreateItem inserts a catalog item. Successive calls get strictly
// increasing created_at values so insertion order is deterministic.
func CreateItem(t *testing.T, conn *gorm.DB, name, price string, category enums.ItemCategory) models.Item {
	t.Helper()
	item := models.Item{
		Name:        name,
		Description: name + " pie",
		Price:       decimal.RequireFromString(price),
		Category:    category,
		Discount:    decimal.Zero,
		CreatedAt:   fixtureEpoch.Add(time.Duration(seq.Add(1)) * time.Millisecond),
	}
	require.NoError(t, conn.Create(&item).Error)
	return item
}

// Mock opens a postgres-dialect gorm handle backed by sqlmock, for driving
// data-layer fault paths.
func Mock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return conn, mock
}
