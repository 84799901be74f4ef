package order

import (
	"github.com/cfcdist/orderflow/internal/order/repository"
	"github.com/cfcdist/orderflow/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
