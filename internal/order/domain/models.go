package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Order is the central aggregate: one purchase order moving through the
// six-checkpoint fulfillment pipeline. OrderID is the external wholesale
// identifier and is opaque even when numeric-looking.
type Order struct {
	OrderID string `gorm:"primaryKey;column:order_id" json:"order_id"`

	CustomerName string `json:"customer_name,omitempty"`
	CompanyName  string `json:"company_name,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`

	Street  string `json:"street,omitempty"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`

	Comments    string          `json:"comments,omitempty"`
	OrderTotal  decimal.Decimal `gorm:"type:numeric(12,2)" json:"order_total"`
	TotalWeight float64         `json:"total_weight,omitempty"`
	OrderDate   time.Time       `gorm:"index" json:"order_date"`

	IsTrustedCustomer bool `gorm:"not null;default:false" json:"is_trusted_customer"`

	Supplier        string `json:"supplier,omitempty"`
	SupplierOrderNo string `json:"supplier_order_no,omitempty"`
	EmailThreadID   string `json:"email_thread_id,omitempty"`

	// Populated by reconciliation. PaymentAmount and ShippingCost stay null
	// for multi-order payments where no per-order amount can be attributed.
	PaymentAmount decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"payment_amount,omitempty"`
	ShippingCost  decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"shipping_cost,omitempty"`
	RLQuoteNo     string              `gorm:"column:rl_quote_no" json:"rl_quote_no,omitempty"`
	Tracking      string              `json:"tracking,omitempty"`
	ProNumber     string              `json:"pro_number,omitempty"`

	Warehouse1 string `gorm:"column:warehouse_1" json:"warehouse_1,omitempty"`
	Warehouse2 string `gorm:"column:warehouse_2" json:"warehouse_2,omitempty"`
	Warehouse3 string `gorm:"column:warehouse_3" json:"warehouse_3,omitempty"`
	Warehouse4 string `gorm:"column:warehouse_4" json:"warehouse_4,omitempty"`

	// Checkpoint flags. A flag's timestamp is non-null if and only if the
	// flag is true; ApplyCheckpoint maintains the pairing.
	PaymentLinkSent      bool       `gorm:"not null;default:false" json:"payment_link_sent"`
	PaymentLinkSentAt    *time.Time `json:"payment_link_sent_at,omitempty"`
	PaymentReceived      bool       `gorm:"not null;default:false" json:"payment_received"`
	PaymentReceivedAt    *time.Time `json:"payment_received_at,omitempty"`
	SentToWarehouse      bool       `gorm:"not null;default:false" json:"sent_to_warehouse"`
	SentToWarehouseAt    *time.Time `json:"sent_to_warehouse_at,omitempty"`
	WarehouseConfirmed   bool       `gorm:"not null;default:false" json:"warehouse_confirmed"`
	WarehouseConfirmedAt *time.Time `json:"warehouse_confirmed_at,omitempty"`
	BolSent              bool       `gorm:"not null;default:false" json:"bol_sent"`
	BolSentAt            *time.Time `json:"bol_sent_at,omitempty"`
	IsComplete           bool       `gorm:"not null;default:false" json:"is_complete"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// LineItem is one SKU within an order. Line items are replaced wholesale on
// each re-sync from the upstream API, never merged.
type LineItem struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderID   string          `gorm:"not null;index" json:"order_id"`
	SKU       string          `gorm:"not null" json:"sku"`
	SKUPrefix string          `gorm:"not null;index" json:"sku_prefix"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `gorm:"not null;default:1" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2)" json:"price"`
	Warehouse string          `json:"warehouse,omitempty"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
}

func (LineItem) TableName() string { return "line_items" }
