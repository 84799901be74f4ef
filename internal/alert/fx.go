package alert

import (
	"github.com/cfcdist/orderflow/internal/alert/repository"
	"github.com/cfcdist/orderflow/internal/alert/service"
	"go.uber.org/fx"
)

var Module = fx.Module("alert.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
