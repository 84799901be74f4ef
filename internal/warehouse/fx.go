package warehouse

import (
	"github.com/cfcdist/orderflow/internal/warehouse/repository"
	"github.com/cfcdist/orderflow/internal/warehouse/service"
	"go.uber.org/fx"
)

var Module = fx.Module("warehouse.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
