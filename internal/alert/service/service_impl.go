package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/cfcdist/orderflow/internal/alert/domain"
	"github.com/cfcdist/orderflow/internal/clock"
	"github.com/cfcdist/orderflow/internal/config"
	orderdomain "github.com/cfcdist/orderflow/internal/order/domain"
	warehousedomain "github.com/cfcdist/orderflow/internal/warehouse/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Config    config.Config
	Repo      domain.Repository
	Orders    orderdomain.Repository
	Warehouse warehousedomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	orders    orderdomain.Repository
	warehouse warehousedomain.Service
	graceDays int
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("alert.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		orders:    p.Orders,
		warehouse: p.Warehouse,
		graceDays: p.Config.Sync.AlertGraceDays,
	}
}

// Sweep raises an alert for every trusted-customer order that shipped but
// remains unpaid past its grace period. The existence check runs inside the
// same transaction as the insert, so two overlapping sweeps create at most
// one alert per order and type.
func (s *Service) Sweep(ctx context.Context) (domain.SweepResult, error) {
	result := domain.SweepResult{Created: []string{}}

	orders, err := s.orders.ListIncomplete(ctx, s.db)
	if err != nil {
		return result, err
	}
	result.Scanned = len(orders)

	now := s.clock.Now()
	for _, order := range orders {
		if !order.IsTrustedCustomer || !order.BolSent || order.PaymentReceived {
			continue
		}

		grace := s.graceDays
		if days, ok, err := s.warehouse.TrustedGraceDays(ctx, order.CustomerName, order.CompanyName, order.Email); err == nil && ok {
			grace = days
		}

		shippedAt := order.CreatedAt
		if order.BolSentAt != nil {
			shippedAt = *order.BolSentAt
		}
		overdue := int(now.Sub(shippedAt).Hours() / 24)
		if overdue < grace {
			continue
		}

		alert := &domain.Alert{
			ID:        s.genID.Generate(),
			OrderID:   order.OrderID,
			AlertType: domain.TypeTrustedUnpaid,
			Message: fmt.Sprintf("trusted customer %s shipped %d days ago, payment still outstanding",
				order.CustomerName, overdue),
			CreatedAt: now,
		}

		var created bool
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			created, err = s.repo.InsertIfAbsent(ctx, tx, alert)
			return err
		})
		if err != nil {
			// One order's failure never aborts the sweep.
			s.log.Warn("alert insert failed",
				zap.String("order_id", order.OrderID),
				zap.Error(err),
			)
			continue
		}
		if !created {
			result.Skipped++
			continue
		}

		result.Created = append(result.Created, order.OrderID)
		s.log.Info("alert raised",
			zap.String("order_id", order.OrderID),
			zap.String("alert_type", domain.TypeTrustedUnpaid),
			zap.Int("days_overdue", overdue),
		)
	}
	return result, nil
}

func (s *Service) List(ctx context.Context, includeResolved bool) ([]domain.Alert, error) {
	return s.repo.List(ctx, s.db, includeResolved)
}

func (s *Service) Resolve(ctx context.Context, id snowflake.ID) (*domain.Alert, error) {
	if err := s.repo.Resolve(ctx, s.db, id, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, s.db, id)
}
