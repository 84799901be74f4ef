package repository

import (
	"context"
	"time"

	"github.com/cfcdist/orderflow/internal/shipment/domain"
	"github.com/cfcdist/orderflow/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertIfAbsent(ctx context.Context, conn *gorm.DB, shipment *domain.Shipment) (bool, error) {
	err := conn.WithContext(ctx).Create(shipment).Error
	if err == nil {
		return true, nil
	}
	if db.IsDuplicateKeyErr(err) {
		return false, nil
	}
	return false, err
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, shipmentID string) (*domain.Shipment, error) {
	var shipment domain.Shipment
	err := conn.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Limit(1).
		Find(&shipment).Error
	if err != nil {
		return nil, err
	}
	if shipment.ShipmentID == "" {
		return nil, nil
	}
	return &shipment, nil
}

func (r *repo) ListByOrder(ctx context.Context, conn *gorm.DB, orderID string) ([]domain.Shipment, error) {
	var shipments []domain.Shipment
	err := conn.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("shipment_id asc").
		Find(&shipments).Error
	if err != nil {
		return nil, err
	}
	return shipments, nil
}

func (r *repo) UpdateStatus(ctx context.Context, conn *gorm.DB, shipmentID string, status domain.Status, now time.Time) error {
	result := conn.WithContext(ctx).Model(&domain.Shipment{}).
		Where("shipment_id = ?", shipmentID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
