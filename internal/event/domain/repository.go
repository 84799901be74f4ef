package domain

import (
	"context"

	"gorm.io/gorm"
)

// Recorder is the append-only audit trail. Implementations never update or
// delete rows; Append participates in whatever transaction handle it is
// given so state change and audit record commit together.
type Recorder interface {
	Append(ctx context.Context, db *gorm.DB, event *Event) error
	AppendUnmatched(ctx context.Context, db *gorm.DB, signal *UnmatchedSignal) error
	ListByOrder(ctx context.Context, db *gorm.DB, orderID string) ([]Event, error)
	ListUnmatched(ctx context.Context, db *gorm.DB, limit int) ([]UnmatchedSignal, error)
	// PaymentHandled reports whether a payment id already produced an event
	// or an unmatched signal. Overlapping scan windows re-surface the same
	// payment fact; this lookup is what keeps the re-scan a no-op.
	PaymentHandled(ctx context.Context, db *gorm.DB, paymentID string) (bool, error)
}
