package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/kolamart/kolamart/internal/clock"
	"github.com/kolamart/kolamart/internal/config"
	"github.com/kolamart/kolamart/internal/idempotency"
	"github.com/kolamart/kolamart/internal/kv"
	"github.com/kolamart/kolamart/internal/migration"
	"github.com/kolamart/kolamart/internal/notification"
	"github.com/kolamart/kolamart/internal/observability"
	"github.com/kolamart/kolamart/internal/order"
	"github.com/kolamart/kolamart/internal/payment"
	"github.com/kolamart/kolamart/internal/product"
	"github.com/kolamart/kolamart/internal/queue"
	"github.com/kolamart/kolamart/internal/server"
	"github.com/kolamart/kolamart/internal/transaction"
	"github.com/kolamart/kolamart/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		kv.Module,
		idempotency.Module,
		queue.Module,

		product.Module,
		order.Module,
		transaction.Module,
		payment.Module,
		notification.Module,

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
