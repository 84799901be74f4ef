package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Event is one immutable, source-tagged fact about an order. Events are only
// ever appended; ordering is created_at, ties broken by id.
type Event struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrderID   string            `gorm:"not null;index" json:"order_id"`
	EventType string            `gorm:"not null;index" json:"event_type"`
	EventData datatypes.JSONMap `gorm:"type:jsonb" json:"event_data,omitempty"`
	Source    string            `gorm:"not null;default:manual" json:"source"`
	CreatedAt time.Time         `gorm:"not null;index" json:"created_at"`
}

func (Event) TableName() string { return "events" }

// UnmatchedSignal preserves a detection that could not be attributed to any
// order, with enough extracted context for manual reconciliation.
type UnmatchedSignal struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	SignalType string            `gorm:"not null;index" json:"signal_type"`
	Source     string            `gorm:"not null" json:"source"`
	Reason     string            `gorm:"not null" json:"reason"`
	Payload    datatypes.JSONMap `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

func (UnmatchedSignal) TableName() string { return "unmatched_signals" }

// Well-known signal sources.
const (
	SourceManual        = "manual"
	SourceEmailSync     = "email_sync"
	SourceProcessorAPI  = "processor_api"
	SourceWholesaleSync = "wholesale_sync"
)
