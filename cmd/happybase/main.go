package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/happybase/portal/internal/clock"
	"github.com/happybase/portal/internal/config"
	"github.com/happybase/portal/internal/migration"
	"github.com/happybase/portal/internal/observability"
	"github.com/happybase/portal/internal/scheduler"
	"github.com/happybase/portal/internal/server"
	"github.com/happybase/portal/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface and every domain module behind it
		server.Module,

		// Background reconciliation
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
