package domain

import (
	"context"
	"time"

	"github.com/cfcdist/orderflow/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ListFilter narrows order listings.
type ListFilter struct {
	Status          string
	Supplier        string
	IncludeComplete bool
}

// Supplemental carries the free-form fields that may ride along with a
// checkpoint update. Zero values mean "leave the stored value unchanged";
// an omitted field never nulls out existing data.
type Supplemental struct {
	PaymentAmount   *decimal.Decimal
	ShippingCost    *decimal.Decimal
	RLQuoteNo       string
	Tracking        string
	ProNumber       string
	Supplier        string
	SupplierOrderNo string
}

// Empty reports whether the update carries nothing to merge.
func (s Supplemental) Empty() bool {
	return s.PaymentAmount == nil && s.ShippingCost == nil &&
		s.RLQuoteNo == "" && s.Tracking == "" && s.ProNumber == "" &&
		s.Supplier == "" && s.SupplierOrderNo == ""
}

// Repository methods take a *gorm.DB handle so services can run several of
// them inside one transaction; idempotency checks re-read through the same
// handle and therefore see transaction-time state.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, orderID string) (*Order, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Order, error)

	// Upsert inserts a new order or refreshes header/address fields of an
	// existing one without touching checkpoint state. Returns whether the
	// order was created.
	Upsert(ctx context.Context, db *gorm.DB, order *Order) (bool, error)

	// UnpaidCandidates returns orders not yet marked paid whose customer or
	// company name contains token (case-insensitive), most recent order date
	// first, capped at limit.
	UnpaidCandidates(ctx context.Context, db *gorm.DB, token string, limit int) ([]*Order, error)

	// ApplyCheckpoint sets or clears one checkpoint flag together with its
	// paired timestamp and bumps updated_at, all in a single statement.
	ApplyCheckpoint(ctx context.Context, db *gorm.DB, orderID string, cp Checkpoint, value bool, at time.Time, now time.Time) error

	// MergeSupplemental writes only the provided supplemental fields.
	MergeSupplemental(ctx context.Context, db *gorm.DB, orderID string, fields Supplemental, now time.Time) error

	// UpdateFields patches descriptive order fields (set-if-provided).
	UpdateFields(ctx context.Context, db *gorm.DB, orderID string, fields map[string]any, now time.Time) error

	// MergeWarehouseSlots fills empty warehouse slots with the given names
	// in first-seen order. Occupied slots are never overwritten and names
	// beyond the fourth slot are discarded.
	MergeWarehouseSlots(ctx context.Context, db *gorm.DB, orderID string, warehouses []string, now time.Time) (*Order, error)

	ReplaceLineItems(ctx context.Context, db *gorm.DB, orderID string, items []LineItem) error
	ListLineItems(ctx context.Context, db *gorm.DB, orderID string) ([]LineItem, error)

	// StatusCounts groups active orders by derived status.
	StatusCounts(ctx context.Context, db *gorm.DB) (map[string]int, int, int, error)

	// ListIncomplete returns orders with is_complete = false, oldest first.
	ListIncomplete(ctx context.Context, db *gorm.DB) ([]*Order, error)
}
