package domain

import (
	"time"
)

// Checkpoint is one of the six boolean milestones in an order's fulfillment
// lifecycle. The sequence is conceptually ordered but not enforced: any
// checkpoint can be toggled independently, because real-world signals arrive
// out of order.
type Checkpoint string

const (
	CheckpointPaymentLinkSent    Checkpoint = "payment_link_sent"
	CheckpointPaymentReceived    Checkpoint = "payment_received"
	CheckpointSentToWarehouse    Checkpoint = "sent_to_warehouse"
	CheckpointWarehouseConfirmed Checkpoint = "warehouse_confirmed"
	CheckpointBolSent            Checkpoint = "bol_sent"
	CheckpointComplete           Checkpoint = "is_complete"
)

// Checkpoints lists all checkpoints in pipeline order.
var Checkpoints = []Checkpoint{
	CheckpointPaymentLinkSent,
	CheckpointPaymentReceived,
	CheckpointSentToWarehouse,
	CheckpointWarehouseConfirmed,
	CheckpointBolSent,
	CheckpointComplete,
}

// ParseCheckpoint validates a checkpoint name from an external caller.
func ParseCheckpoint(value string) (Checkpoint, error) {
	cp := Checkpoint(value)
	for _, known := range Checkpoints {
		if cp == known {
			return cp, nil
		}
	}
	return "", ErrInvalidCheckpoint
}

// FlagColumn is the boolean column holding the checkpoint flag.
func (c Checkpoint) FlagColumn() string { return string(c) }

// TimeColumn is the timestamp column paired with the flag.
func (c Checkpoint) TimeColumn() string {
	if c == CheckpointComplete {
		return "completed_at"
	}
	return string(c) + "_at"
}

// UndoneEventType tags the audit event written for an explicit undo.
func (c Checkpoint) UndoneEventType() string { return string(c) + "_undone" }

// Flag reports the checkpoint's boolean on the order.
func (o *Order) Flag(c Checkpoint) bool {
	switch c {
	case CheckpointPaymentLinkSent:
		return o.PaymentLinkSent
	case CheckpointPaymentReceived:
		return o.PaymentReceived
	case CheckpointSentToWarehouse:
		return o.SentToWarehouse
	case CheckpointWarehouseConfirmed:
		return o.WarehouseConfirmed
	case CheckpointBolSent:
		return o.BolSent
	case CheckpointComplete:
		return o.IsComplete
	}
	return false
}

// FlagTime reports the timestamp paired with the checkpoint flag.
func (o *Order) FlagTime(c Checkpoint) *time.Time {
	switch c {
	case CheckpointPaymentLinkSent:
		return o.PaymentLinkSentAt
	case CheckpointPaymentReceived:
		return o.PaymentReceivedAt
	case CheckpointSentToWarehouse:
		return o.SentToWarehouseAt
	case CheckpointWarehouseConfirmed:
		return o.WarehouseConfirmedAt
	case CheckpointBolSent:
		return o.BolSentAt
	case CheckpointComplete:
		return o.CompletedAt
	}
	return nil
}

// SetFlag mutates the in-memory order so flag and timestamp move together.
// Persistence goes through Repository.ApplyCheckpoint; this keeps loaded
// aggregates consistent with what was written.
func (o *Order) SetFlag(c Checkpoint, value bool, at time.Time) {
	var ts *time.Time
	if value {
		stamped := at.UTC()
		ts = &stamped
	}
	switch c {
	case CheckpointPaymentLinkSent:
		o.PaymentLinkSent, o.PaymentLinkSentAt = value, ts
	case CheckpointPaymentReceived:
		o.PaymentReceived, o.PaymentReceivedAt = value, ts
	case CheckpointSentToWarehouse:
		o.SentToWarehouse, o.SentToWarehouseAt = value, ts
	case CheckpointWarehouseConfirmed:
		o.WarehouseConfirmed, o.WarehouseConfirmedAt = value, ts
	case CheckpointBolSent:
		o.BolSent, o.BolSentAt = value, ts
	case CheckpointComplete:
		o.IsComplete, o.CompletedAt = value, ts
	}
}

// Display statuses derived from the checkpoint flags.
const (
	StatusComplete          = "complete"
	StatusAwaitingShipment  = "awaiting_shipment"
	StatusNeedsBol          = "needs_bol"
	StatusAwaitingWarehouse = "awaiting_warehouse"
	StatusNeedsWarehouse    = "needs_warehouse_order"
	StatusAwaitingPayment   = "awaiting_payment"
	StatusNeedsPaymentLink  = "needs_payment_link"
	StatusStuckReadyToShip  = "ready_to_ship"
)

// ValidStatus reports whether value names one of the derived list statuses.
func ValidStatus(value string) bool {
	switch value {
	case StatusComplete, StatusAwaitingShipment, StatusNeedsBol,
		StatusAwaitingWarehouse, StatusNeedsWarehouse,
		StatusAwaitingPayment, StatusNeedsPaymentLink:
		return true
	}
	return false
}

// Status scans flags from the most advanced toward the least advanced and
// reports the first true flag found. No flags set means needs_payment_link.
func (o *Order) Status() string {
	switch {
	case o.IsComplete:
		return StatusComplete
	case o.BolSent:
		return StatusAwaitingShipment
	case o.WarehouseConfirmed:
		return StatusNeedsBol
	case o.SentToWarehouse:
		return StatusAwaitingWarehouse
	case o.PaymentReceived:
		return StatusNeedsWarehouse
	case o.PaymentLinkSent:
		return StatusAwaitingPayment
	default:
		return StatusNeedsPaymentLink
	}
}

// StuckAt reports the earliest checkpoint the order has not cleared and the
// time it has been waiting there. Completed orders are never stuck.
func (o *Order) StuckAt() (string, time.Time, bool) {
	if o.IsComplete {
		return "", time.Time{}, false
	}
	switch {
	case !o.PaymentLinkSent:
		return StatusNeedsPaymentLink, o.CreatedAt, true
	case !o.PaymentReceived:
		return StatusAwaitingPayment, derefTime(o.PaymentLinkSentAt, o.CreatedAt), true
	case !o.SentToWarehouse:
		return StatusNeedsWarehouse, derefTime(o.PaymentReceivedAt, o.CreatedAt), true
	case !o.WarehouseConfirmed:
		return StatusAwaitingWarehouse, derefTime(o.SentToWarehouseAt, o.CreatedAt), true
	case !o.BolSent:
		return StatusNeedsBol, derefTime(o.WarehouseConfirmedAt, o.CreatedAt), true
	default:
		return StatusStuckReadyToShip, derefTime(o.BolSentAt, o.CreatedAt), true
	}
}

func derefTime(t *time.Time, fallback time.Time) time.Time {
	if t != nil {
		return *t
	}
	return fallback
}

// Warehouses returns the populated warehouse slots in slot order.
func (o *Order) Warehouses() []string {
	var out []string
	for _, w := range []string{o.Warehouse1, o.Warehouse2, o.Warehouse3, o.Warehouse4} {
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
