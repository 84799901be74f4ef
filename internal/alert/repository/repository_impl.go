package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cfcdist/orderflow/internal/alert/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertIfAbsent(ctx context.Context, db *gorm.DB, alert *domain.Alert) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Alert{}).
		Where("order_id = ? AND alert_type = ? AND resolved = ?", alert.OrderID, alert.AlertType, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if err := db.WithContext(ctx).Create(alert).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Alert, error) {
	var alert domain.Alert
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&alert).Error
	if err != nil {
		return nil, err
	}
	if alert.ID == 0 {
		return nil, nil
	}
	return &alert, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, includeResolved bool) ([]domain.Alert, error) {
	stmt := db.WithContext(ctx).Model(&domain.Alert{})
	if !includeResolved {
		stmt = stmt.Where("resolved = ?", false)
	}
	var alerts []domain.Alert
	err := stmt.Order("created_at desc, id desc").Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *repo) Resolve(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	result := db.WithContext(ctx).Model(&domain.Alert{}).
		Where("id = ? AND resolved = ?", id, false).
		Updates(map[string]any{
			"resolved":    true,
			"resolved_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
