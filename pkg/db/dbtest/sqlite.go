// Package dbtest opens isolated in-memory SQLite databases carrying the
// storefront schema, for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/pieshop-backend/pkg/db"
)

var seq atomic.Int64

// Schema mirrors pkg/migrate/migrations using SQLite types.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS items (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price TEXT NOT NULL,
  category TEXT NOT NULL CHECK (category IN ('sweet', 'savory')),
  image_url TEXT,
  discount TEXT NOT NULL DEFAULT '0',
  is_promoted INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_items_single_promotion ON items (is_promoted) WHERE is_promoted = 1;`,
	`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL,
  total TEXT NOT NULL,
  delivery_eta DATETIME NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS line_items (
  id TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL,
  item_id TEXT NOT NULL REFERENCES items (id),
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed')),
  order_id TEXT REFERENCES orders (id),
  unit_price TEXT,
  line_total TEXT,
  created_at DATETIME,
  completed_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_line_items_pending ON line_items (user_id, item_id) WHERE status = 'pending';`,
	`CREATE TABLE IF NOT EXISTS admins (
  id TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL UNIQUE,
  username TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS feedback (
  id TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL,
  text TEXT NOT NULL,
  created_at DATETIME
);`,
}

// Open returns a fresh database private to the calling test. The pool is
// capped at one connection, so code under test must route every query of a
// transaction through the transaction handle.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=1", name, seq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range Schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

// Client wraps Open in a db.Client for code that needs WithTx.
func Client(t *testing.T) *db.Client {
	t.Helper()
	return db.NewFromConn(Open(t))
}
