package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	alertdomain "github.com/cfcdist/orderflow/internal/alert/domain"
	"github.com/cfcdist/orderflow/internal/config"
	eventdomain "github.com/cfcdist/orderflow/internal/event/domain"
	orderdomain "github.com/cfcdist/orderflow/internal/order/domain"
	shipmentdomain "github.com/cfcdist/orderflow/internal/shipment/domain"
	warehousedomain "github.com/cfcdist/orderflow/internal/warehouse/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// Versioned SQL targets Postgres only. SQLite and MySQL are
			// development conveniences and get the gorm schema directly.
			return conn.AutoMigrate(
				&orderdomain.Order{},
				&orderdomain.LineItem{},
				&eventdomain.Event{},
				&eventdomain.UnmatchedSignal{},
				&shipmentdomain.Shipment{},
				&alertdomain.Alert{},
				&warehousedomain.Mapping{},
				&warehousedomain.TrustedCustomer{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
