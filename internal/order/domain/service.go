package domain

import (
	"context"
	"errors"
	"time"

	eventdomain "github.com/cfcdist/orderflow/internal/event/domain"
	"github.com/cfcdist/orderflow/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("order_not_found")
	ErrOrderExists       = errors.New("order_exists")
	ErrInvalidOrderID    = errors.New("invalid_order_id")
	ErrInvalidCheckpoint = errors.New("invalid_checkpoint")
)

type CreateOrderRequest struct {
	OrderID       string
	CustomerName  string
	CompanyName   string
	Email         string
	Phone         string
	Street        string
	Street2       string
	City          string
	State         string
	Zip           string
	Comments      string
	OrderTotal    decimal.Decimal
	TotalWeight   float64
	OrderDate     *time.Time
	EmailThreadID string
	Source        string
}

type BulkCreateRequest struct {
	Orders []CreateOrderRequest
}

type BulkCreateResponse struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

type ListOrdersRequest struct {
	Status          string
	Supplier        string
	IncludeComplete bool
	Page            pagination.Pagination
}

type OrderView struct {
	Order
	CurrentStatus string `json:"current_status"`
	DaysOpen      int    `json:"days_open"`
}

type ListOrdersResponse struct {
	pagination.PageInfo
	Orders []OrderView `json:"orders"`
}

type UpdateOrderRequest struct {
	OrderID         string
	CustomerName    *string
	Supplier        *string
	SupplierOrderNo *string
	Comments        *string
}

// UpdateCheckpointRequest applies one signal as a state transition.
// Value=false is an explicit undo. Timestamp nil means "now".
type UpdateCheckpointRequest struct {
	OrderID      string
	Checkpoint   Checkpoint
	Value        bool
	Timestamp    *time.Time
	Source       string
	Data         map[string]any
	Supplemental Supplemental
}

type UpdateCheckpointResponse struct {
	Order          OrderView  `json:"order"`
	Checkpoint     Checkpoint `json:"checkpoint"`
	Value          bool       `json:"value"`
	AlreadyApplied bool       `json:"already_applied"`
}

type StatusSummary struct {
	TotalOrders    int            `json:"total_orders"`
	CompleteOrders int            `json:"complete_orders"`
	ActiveOrders   int            `json:"active_orders"`
	ByStatus       map[string]int `json:"by_status"`
}

type StuckOrder struct {
	OrderID      string    `json:"order_id"`
	CustomerName string    `json:"customer_name,omitempty"`
	Supplier     string    `json:"supplier,omitempty"`
	StuckAt      string    `json:"stuck_at"`
	StuckSince   time.Time `json:"stuck_since"`
	DaysStuck    int       `json:"days_stuck"`
}

type Service interface {
	Create(ctx context.Context, req CreateOrderRequest) (OrderView, error)
	BulkCreate(ctx context.Context, req BulkCreateRequest) (BulkCreateResponse, error)
	GetByID(ctx context.Context, orderID string) (OrderView, error)
	List(ctx context.Context, req ListOrdersRequest) (ListOrdersResponse, error)
	Update(ctx context.Context, req UpdateOrderRequest) (OrderView, error)
	UpdateCheckpoint(ctx context.Context, req UpdateCheckpointRequest) (UpdateCheckpointResponse, error)
	Events(ctx context.Context, orderID string) ([]eventdomain.Event, error)
	LineItems(ctx context.Context, orderID string) ([]LineItem, error)
	StatusSummary(ctx context.Context) (StatusSummary, error)
	StuckOrders(ctx context.Context, minDays int) ([]StuckOrder, error)
}
