package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Mapping is one row of the static SKU-prefix to warehouse lookup table.
// The table is externally maintained; the reconciliation engine only reads it.
type Mapping struct {
	SKUPrefix string    `gorm:"primaryKey;column:sku_prefix" json:"sku_prefix"`
	Warehouse string    `gorm:"not null" json:"warehouse"`
	CreatedAt time.Time `json:"created_at"`
}

func (Mapping) TableName() string { return "warehouse_mappings" }

// TrustedCustomer may have goods shipped before payment confirmation,
// subject to a grace period in days.
type TrustedCustomer struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `json:"name,omitempty"`
	Company   string       `json:"company,omitempty"`
	Email     string       `json:"email,omitempty"`
	GraceDays int          `gorm:"not null;default:7" json:"grace_days"`
	CreatedAt time.Time    `json:"created_at"`
}

func (TrustedCustomer) TableName() string { return "trusted_customers" }

type Repository interface {
	FindMappings(ctx context.Context, db *gorm.DB, prefixes []string) (map[string]string, error)
	MatchTrusted(ctx context.Context, db *gorm.DB, name, company, email string) (*TrustedCustomer, error)
	ListMappings(ctx context.Context, db *gorm.DB) ([]Mapping, error)
}

type Service interface {
	// Resolve maps SKU prefixes to an ordered, deduplicated warehouse list.
	// Unknown prefixes are skipped, not errors.
	Resolve(ctx context.Context, prefixes []string) ([]string, error)

	// TrustedGraceDays reports whether the customer is in the trusted
	// registry (case-insensitive name/company/email match) and its grace
	// period.
	TrustedGraceDays(ctx context.Context, name, company, email string) (int, bool, error)
}
