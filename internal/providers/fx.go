package providers

import (
	"github.com/cfcdist/orderflow/internal/config"
	"github.com/cfcdist/orderflow/internal/providers/gmail"
	"github.com/cfcdist/orderflow/internal/providers/square"
	"github.com/cfcdist/orderflow/internal/providers/summarizer"
	"github.com/cfcdist/orderflow/internal/providers/wholesale"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers",
	fx.Provide(func(cfg config.Config, log *zap.Logger) *gmail.Client {
		return gmail.New(cfg.Gmail, log)
	}),
	fx.Provide(func(cfg config.Config, log *zap.Logger) *square.Client {
		return square.New(cfg.Square, log)
	}),
	fx.Provide(func(cfg config.Config, log *zap.Logger) *wholesale.Client {
		return wholesale.New(cfg.Wholesale, log)
	}),
	fx.Provide(func(cfg config.Config, log *zap.Logger) *summarizer.Summarizer {
		return summarizer.New(cfg.Summarizer, log)
	}),
)
