package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Status is the per-warehouse sub-state of an order's fulfillment, tracked
// independently of the order-level checkpoints.
type Status string

const (
	StatusNeedsOrder  Status = "needs_order"
	StatusAtWarehouse Status = "at_warehouse"
	StatusNeedsBol    Status = "needs_bol"
	StatusReadyShip   Status = "ready_ship"
	StatusShipped     Status = "shipped"
	StatusDelivered   Status = "delivered"
)

var statuses = []Status{
	StatusNeedsOrder,
	StatusAtWarehouse,
	StatusNeedsBol,
	StatusReadyShip,
	StatusShipped,
	StatusDelivered,
}

func ParseStatus(value string) (Status, error) {
	st := Status(value)
	for _, known := range statuses {
		if st == known {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}

var (
	ErrNotFound      = errors.New("shipment_not_found")
	ErrInvalidStatus = errors.New("invalid_shipment_status")
)

// Shipment is one (order, warehouse) pair. ShipmentID is the derived
// composite key: order_id plus the sanitized warehouse name. A pair is
// created once, the first time its warehouse is resolved, and never
// duplicated.
type Shipment struct {
	ShipmentID string    `gorm:"primaryKey;column:shipment_id" json:"shipment_id"`
	OrderID    string    `gorm:"not null;index" json:"order_id"`
	Warehouse  string    `gorm:"not null" json:"warehouse"`
	Status     Status    `gorm:"not null;default:needs_order" json:"status"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (Shipment) TableName() string { return "shipments" }

type Repository interface {
	// InsertIfAbsent creates the shipment unless its composite key already
	// exists. Returns whether a row was created.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, shipment *Shipment) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, shipmentID string) (*Shipment, error)
	ListByOrder(ctx context.Context, db *gorm.DB, orderID string) ([]Shipment, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, shipmentID string, status Status, now time.Time) error
}

type Service interface {
	// Ensure creates the (order, warehouse) shipment if it does not exist.
	// Safe inside a caller-supplied transaction handle.
	Ensure(ctx context.Context, db *gorm.DB, orderID, warehouse string) (*Shipment, bool, error)
	ListByOrder(ctx context.Context, orderID string) ([]Shipment, error)
	Transition(ctx context.Context, shipmentID string, status Status) (*Shipment, error)
}
