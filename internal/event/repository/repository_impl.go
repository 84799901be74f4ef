package repository

import (
	"context"

	"github.com/cfcdist/orderflow/internal/event/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Recorder {
	return &repo{}
}

func (r *repo) Append(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) AppendUnmatched(ctx context.Context, db *gorm.DB, signal *domain.UnmatchedSignal) error {
	return db.WithContext(ctx).Create(signal).Error
}

func (r *repo) ListByOrder(ctx context.Context, db *gorm.DB, orderID string) ([]domain.Event, error) {
	var events []domain.Event
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc, id asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) PaymentHandled(ctx context.Context, db *gorm.DB, paymentID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Event{}).
		Where(datatypes.JSONQuery("event_data").Equals(paymentID, "payment_id")).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	err = db.WithContext(ctx).Model(&domain.UnmatchedSignal{}).
		Where(datatypes.JSONQuery("payload").Equals(paymentID, "payment_id")).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ListUnmatched(ctx context.Context, db *gorm.DB, limit int) ([]domain.UnmatchedSignal, error) {
	if limit <= 0 {
		limit = 100
	}
	var signals []domain.UnmatchedSignal
	err := db.WithContext(ctx).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&signals).Error
	if err != nil {
		return nil, err
	}
	return signals, nil
}
