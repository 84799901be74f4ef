package event

import (
	"github.com/cfcdist/orderflow/internal/event/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("event.recorder",
	fx.Provide(repository.Provide),
)
