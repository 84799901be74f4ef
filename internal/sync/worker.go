package sync

import (
	"context"
	"time"

	alertdomain "github.com/cfcdist/orderflow/internal/alert/domain"
	"github.com/cfcdist/orderflow/internal/config"
	"github.com/cfcdist/orderflow/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// runTimeout bounds one full reconciliation pass.
const runTimeout = 5 * time.Minute

// Worker drives the periodic reconciliation loop: mailbox scan, processor
// sweep, wholesale mirror, then the alert sweep on its own cadence. One
// source failing never stops the others.
type Worker struct {
	log       *zap.Logger
	cfg       config.SyncConfig
	email     *EmailSync
	payments  *PaymentSync
	wholesale *WholesaleSync
	alerts    alertdomain.Service
	metrics   *metrics.Metrics
}

type WorkerParams struct {
	fx.In

	Log       *zap.Logger
	Config    config.Config
	Email     *EmailSync
	Payments  *PaymentSync
	Wholesale *WholesaleSync
	Alerts    alertdomain.Service
	Metrics   *metrics.Metrics
}

func NewWorker(p WorkerParams) *Worker {
	return &Worker{
		log:       p.Log.Named("sync.worker"),
		cfg:       p.Config.Sync,
		email:     p.Email,
		payments:  p.Payments,
		wholesale: p.Wholesale,
		alerts:    p.Alerts,
		metrics:   p.Metrics,
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	syncTicker := time.NewTicker(w.cfg.Interval)
	defer syncTicker.Stop()
	alertTicker := time.NewTicker(w.cfg.AlertSweepInterval)
	defer alertTicker.Stop()

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-syncTicker.C:
			w.RunOnce(ctx)
		case <-alertTicker.C:
			w.RunAlertSweep(ctx)
		}
	}
}

// RunOnce runs all three source syncs under a single run timeout.
func (w *Worker) RunOnce(parentCtx context.Context) {
	ctx, cancel := context.WithTimeout(parentCtx, runTimeout)
	defer cancel()

	log := w.log.With(zap.String("run_id", uuid.NewString()))
	started := time.Now()
	log.Info("reconciliation pass started")

	w.RunEmailSync(ctx)
	w.RunPaymentSync(ctx)
	w.RunWholesaleSync(ctx)

	log.Info("reconciliation pass finished", zap.Duration("elapsed", time.Since(started)))
}

func (w *Worker) RunEmailSync(ctx context.Context) EmailSyncResult {
	result := w.email.Run(ctx, int(w.cfg.EmailLookback.Hours()))
	w.metrics.SyncRuns.WithLabelValues("email", result.Status).Inc()
	w.metrics.SignalsApplied.WithLabelValues("email", "payment_link").Add(float64(result.PaymentLinks))
	w.metrics.SignalsApplied.WithLabelValues("email", "payment").Add(float64(result.Payments))
	w.metrics.SignalsApplied.WithLabelValues("email", "rl_quote").Add(float64(result.RLQuotes))
	w.metrics.SignalsApplied.WithLabelValues("email", "tracking").Add(float64(result.TrackingNumbers))
	w.metrics.SyncErrors.WithLabelValues("email").Add(float64(len(result.Errors)))
	return result
}

func (w *Worker) RunPaymentSync(ctx context.Context) PaymentSyncResult {
	result := w.payments.Run(ctx, w.cfg.PaymentLookback)
	w.metrics.SyncRuns.WithLabelValues("payments", result.Status).Inc()
	w.metrics.SignalsApplied.WithLabelValues("payments", "payment").Add(float64(len(result.Updated)))
	w.metrics.SyncErrors.WithLabelValues("payments").Add(float64(len(result.Errors)))
	return result
}

func (w *Worker) RunWholesaleSync(ctx context.Context) WholesaleSyncResult {
	result := w.wholesale.Run(ctx, w.cfg.WholesaleLookback)
	w.metrics.SyncRuns.WithLabelValues("wholesale", result.Status).Inc()
	w.metrics.SignalsApplied.WithLabelValues("wholesale", "order").Add(float64(len(result.Created) + len(result.Updated)))
	w.metrics.SyncErrors.WithLabelValues("wholesale").Add(float64(len(result.Errors)))
	return result
}

func (w *Worker) RunWholesaleOrderSync(ctx context.Context, orderID string) WholesaleSyncResult {
	result := w.wholesale.SyncOne(ctx, orderID)
	w.metrics.SyncRuns.WithLabelValues("wholesale", result.Status).Inc()
	w.metrics.SignalsApplied.WithLabelValues("wholesale", "order").Add(float64(len(result.Created) + len(result.Updated)))
	w.metrics.SyncErrors.WithLabelValues("wholesale").Add(float64(len(result.Errors)))
	return result
}

func (w *Worker) RunAlertSweep(ctx context.Context) alertdomain.SweepResult {
	result, err := w.alerts.Sweep(ctx)
	if err != nil {
		w.log.Warn("alert sweep failed", zap.Error(err))
		w.metrics.SyncRuns.WithLabelValues("alerts", "error").Inc()
		return result
	}
	w.metrics.SyncRuns.WithLabelValues("alerts", "ok").Inc()
	w.metrics.AlertsRaised.Add(float64(len(result.Created)))
	return result
}
