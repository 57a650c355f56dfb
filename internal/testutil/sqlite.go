// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// sqliteSchema mirrors the postgres migration with sqlite-compatible types.
var sqliteSchema = []string{
	`CREATE TABLE merchants (
		id TEXT PRIMARY KEY,
		organization TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL,
		onboarding_link TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE apps (
		id INTEGER PRIMARY KEY,
		creator_id TEXT NOT NULL,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		catalog_key TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price TEXT NOT NULL,
		organization TEXT NOT NULL,
		merchant TEXT NOT NULL,
		billing_interval TEXT NOT NULL,
		private_url TEXT NOT NULL DEFAULT '',
		stripe_price_id TEXT NOT NULL,
		payment_link TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE portals (
		id INTEGER PRIMARY KEY,
		creator_id TEXT NOT NULL,
		url TEXT NOT NULL,
		product_id TEXT NOT NULL,
		merchant TEXT NOT NULL,
		price TEXT NOT NULL,
		billing_interval TEXT NOT NULL,
		stripe_price_id TEXT NOT NULL,
		payment_link TEXT NOT NULL DEFAULT '',
		access_token TEXT,
		redirect_url TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE provisioning_steps (
		id INTEGER PRIMARY KEY,
		correlation_id TEXT NOT NULL,
		workflow TEXT NOT NULL,
		organization TEXT NOT NULL DEFAULT '',
		step TEXT NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		terminal BOOLEAN NOT NULL DEFAULT 0,
		metadata TEXT,
		created_at DATETIME NOT NULL
	)`,
}

// OpenDB returns an isolated in-memory database with the full schema applied.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range sqliteSchema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// Snowflake returns a node for id generation in tests.
func Snowflake(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return node
}
