package service

import (
	"context"

	"github.com/cfcdist/orderflow/internal/clock"
	"github.com/cfcdist/orderflow/internal/shipment/domain"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("shipment.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Key derives the composite shipment identifier from the order and the
// sanitized warehouse name.
func Key(orderID, warehouse string) string {
	return orderID + "-" + slug.Make(warehouse)
}

func (s *Service) Ensure(ctx context.Context, db *gorm.DB, orderID, warehouse string) (*domain.Shipment, bool, error) {
	if db == nil {
		db = s.db
	}

	now := s.clock.Now()
	shipment := &domain.Shipment{
		ShipmentID: Key(orderID, warehouse),
		OrderID:    orderID,
		Warehouse:  warehouse,
		Status:     domain.StatusNeedsOrder,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	created, err := s.repo.InsertIfAbsent(ctx, db, shipment)
	if err != nil {
		return nil, false, err
	}
	if !created {
		existing, err := s.repo.FindByID(ctx, db, shipment.ShipmentID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	s.log.Info("shipment created",
		zap.String("shipment_id", shipment.ShipmentID),
		zap.String("order_id", orderID),
		zap.String("warehouse", warehouse),
	)
	return shipment, true, nil
}

func (s *Service) ListByOrder(ctx context.Context, orderID string) ([]domain.Shipment, error) {
	return s.repo.ListByOrder(ctx, s.db, orderID)
}

func (s *Service) Transition(ctx context.Context, shipmentID string, status domain.Status) (*domain.Shipment, error) {
	if _, err := domain.ParseStatus(string(status)); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, s.db, shipmentID, status, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, s.db, shipmentID)
}
