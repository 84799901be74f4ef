package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("alert_not_found")

// Well-known alert types raised by the sweep.
const (
	TypeTrustedUnpaid = "trusted_shipped_unpaid"
)

// Alert flags an exception condition on an order. At most one unresolved
// alert of a given type exists per order; the sweep checks before inserting.
type Alert struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID    string       `gorm:"not null;index" json:"order_id"`
	AlertType  string       `gorm:"not null;index" json:"alert_type"`
	Message    string       `json:"message,omitempty"`
	Resolved   bool         `gorm:"not null;default:false" json:"resolved"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

func (Alert) TableName() string { return "alerts" }

// SweepResult summarizes one sweep run.
type SweepResult struct {
	Scanned int      `json:"scanned"`
	Created []string `json:"created"`
	Skipped int      `json:"skipped"`
}

type Repository interface {
	// InsertIfAbsent creates the alert unless an unresolved alert of the
	// same type already exists for the order. The existence check runs on
	// the handle it is given so it sees transaction-time state.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, alert *Alert) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Alert, error)
	List(ctx context.Context, db *gorm.DB, includeResolved bool) ([]Alert, error)
	Resolve(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}

type Service interface {
	// Sweep scans for exception conditions and raises alerts, at most one
	// unresolved alert per order and type.
	Sweep(ctx context.Context) (SweepResult, error)
	List(ctx context.Context, includeResolved bool) ([]Alert, error)
	Resolve(ctx context.Context, id snowflake.ID) (*Alert, error)
}
