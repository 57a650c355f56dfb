package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

func TestSQLClassification(t *testing.T) {
	cases := []struct {
		sql       string
		operation string
		table     string
	}{
		{`SELECT id FROM merchants WHERE organization_id = $1`, "SELECT", "merchants"},
		{`INSERT INTO "portals" (id, name) VALUES ($1, $2)`, "INSERT", "portals"},
		{`UPDATE products SET stripe_price_id = $1`, "UPDATE", "products"},
		{`WITH x AS (SELECT 1) DELETE FROM apps`, "SELECT", ""},
		{``, "UNKNOWN", ""},
	}
	for _, tc := range cases {
		if got := operationFromSQL(tc.sql); got != tc.operation {
			t.Fatalf("operation for %q: expected %s, got %s", tc.sql, tc.operation, got)
		}
		if tc.table == "" {
			continue
		}
		if got := tableFromSQL(tc.sql); got != tc.table {
			t.Fatalf("table for %q: expected %s, got %s", tc.sql, tc.table, got)
		}
	}
}

func TestGormLoggerTraceLevels(t *testing.T) {
	logs := observeGlobal(t)
	l := NewGormLogger(DefaultGormLoggerConfig())
	query := func() (string, int64) { return "SELECT * FROM portals", 1 }

	l.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)
	if logs.Len() != 0 {
		t.Fatalf("expected record-not-found to be ignored")
	}

	l.Trace(context.Background(), time.Now(), query, errors.New("connection reset"))
	l.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)

	entries := logs.FilterMessage("gorm.query").All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 query logs, got %d", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel || entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("unexpected levels %s, %s", entries[0].Level, entries[1].Level)
	}
	if entries[1].ContextMap()["table"] != "portals" {
		t.Fatalf("expected table field, got %v", entries[1].ContextMap())
	}
}

func TestGormLoggerParamsFilterDropsValues(t *testing.T) {
	sql, params := NewGormLogger(DefaultGormLoggerConfig()).ParamsFilter(context.Background(), "SELECT 1", "tok_secret")
	if sql != "SELECT 1" || params != nil {
		t.Fatalf("expected params dropped, got %v", params)
	}
}
