package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shulekit/shulekit/internal/config"
	"github.com/shulekit/shulekit/internal/migration"
	"github.com/shulekit/shulekit/internal/observability"
	"github.com/shulekit/shulekit/internal/server"
	"github.com/shulekit/shulekit/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
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
