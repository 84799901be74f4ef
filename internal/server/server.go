package server

import (
	"context"
	"net/http"
	"time"

	alertdomain "github.com/cfcdist/orderflow/internal/alert/domain"
	"github.com/cfcdist/orderflow/internal/config"
	eventdomain "github.com/cfcdist/orderflow/internal/event/domain"
	"github.com/cfcdist/orderflow/internal/logger"
	orderdomain "github.com/cfcdist/orderflow/internal/order/domain"
	"github.com/cfcdist/orderflow/internal/providers/summarizer"
	shipmentdomain "github.com/cfcdist/orderflow/internal/shipment/domain"
	"github.com/cfcdist/orderflow/internal/sync"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func registerGin(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(logger.GinMiddleware(log))
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())
	return r
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	cfg         config.Config
	db          *gorm.DB
	log         *zap.Logger
	orderSvc    orderdomain.Service
	shipmentSvc shipmentdomain.Service
	alertSvc    alertdomain.Service
	recorder    eventdomain.Recorder
	worker      *sync.Worker
	summarizer  *summarizer.Summarizer
	registry    *prometheus.Registry
}

type ServerParams struct {
	fx.In

	Cfg         config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	OrderSvc    orderdomain.Service
	ShipmentSvc shipmentdomain.Service
	AlertSvc    alertdomain.Service
	Recorder    eventdomain.Recorder
	Worker      *sync.Worker
	Summarizer  *summarizer.Summarizer
	Registry    *prometheus.Registry
}

func NewServer(p ServerParams) *Server {
	return &Server{
		cfg:         p.Cfg,
		db:          p.DB,
		log:         p.Log.Named("http.server"),
		orderSvc:    p.OrderSvc,
		shipmentSvc: p.ShipmentSvc,
		alertSvc:    p.AlertSvc,
		recorder:    p.Recorder,
		worker:      p.Worker,
		summarizer:  p.Summarizer,
		registry:    p.Registry,
	}
}

func registerRoutes(r *gin.Engine, s *Server) {
	r.GET("/health", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		api.POST("/orders", s.CreateOrder)
		api.POST("/orders/bulk", s.BulkCreateOrders)
		api.GET("/orders", s.ListOrders)
		api.GET("/orders/:orderId", s.GetOrder)
		api.PATCH("/orders/:orderId", s.UpdateOrder)
		api.PATCH("/orders/:orderId/checkpoint", s.UpdateCheckpoint)
		api.GET("/orders/:orderId/events", s.ListOrderEvents)
		api.GET("/orders/:orderId/items", s.ListOrderItems)
		api.GET("/orders/:orderId/shipments", s.ListOrderShipments)

		api.GET("/status/summary", s.StatusSummary)
		api.GET("/status/stuck", s.StuckOrders)
		api.GET("/status/briefing", s.Briefing)

		api.GET("/signals/unmatched", s.ListUnmatchedSignals)

		api.GET("/alerts", s.ListAlerts)
		api.POST("/alerts/:alertId/resolve", s.ResolveAlert)

		api.POST("/shipments/:shipmentId/status", s.TransitionShipment)

		api.POST("/sync/email", s.TriggerEmailSync)
		api.POST("/sync/payments", s.TriggerPaymentSync)
		api.POST("/sync/wholesale", s.TriggerWholesaleSync)
		api.POST("/sync/wholesale/:orderId", s.TriggerWholesaleOrderSync)
		api.POST("/sync/alerts", s.TriggerAlertSweep)
	}
}

func (s *Server) Health(c *gin.Context) {
	status := gin.H{
		"status":  "ok",
		"service": s.cfg.AppName,
		"version": s.cfg.AppVersion,
	}

	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status["status"] = "degraded"
		status["database"] = "unreachable"
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}
