package sync

import (
	"context"

	"github.com/cfcdist/orderflow/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("sync",
	fx.Provide(NewEmailSync),
	fx.Provide(NewPaymentSync),
	fx.Provide(NewWholesaleSync),
	fx.Provide(NewWorker),
)

// WorkerModule starts the background loop; only the syncer process mounts it.
var WorkerModule = fx.Module("sync.loop",
	fx.Invoke(runWorker),
)

func runWorker(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, worker *Worker) {
	if !cfg.Sync.Enabled {
		log.Named("sync.worker").Info("background sync disabled")
		return
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go worker.RunForever(loopCtx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
