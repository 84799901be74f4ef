package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/cfcdist/orderflow/internal/alert"
	"github.com/cfcdist/orderflow/internal/clock"
	"github.com/cfcdist/orderflow/internal/config"
	"github.com/cfcdist/orderflow/internal/event"
	"github.com/cfcdist/orderflow/internal/logger"
	"github.com/cfcdist/orderflow/internal/match"
	"github.com/cfcdist/orderflow/internal/metrics"
	"github.com/cfcdist/orderflow/internal/migration"
	"github.com/cfcdist/orderflow/internal/order"
	"github.com/cfcdist/orderflow/internal/providers"
	"github.com/cfcdist/orderflow/internal/shipment"
	orderflowsync "github.com/cfcdist/orderflow/internal/sync"
	"github.com/cfcdist/orderflow/internal/warehouse"
	"github.com/cfcdist/orderflow/pkg/db"
)

// syncer runs the reconciliation loop without the HTTP surface. Deployments
// that want one process mount sync.WorkerModule next to the server instead.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		event.Module,
		warehouse.Module,
		order.Module,
		shipment.Module,
		alert.Module,
		match.Module,
		providers.Module,
		orderflowsync.Module,
		orderflowsync.WorkerModule,
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
