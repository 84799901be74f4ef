package shipment

import (
	"github.com/cfcdist/orderflow/internal/shipment/repository"
	"github.com/cfcdist/orderflow/internal/shipment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("shipment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
