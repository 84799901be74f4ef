package match

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/cfcdist/orderflow/internal/clock"
	eventdomain "github.com/cfcdist/orderflow/internal/event/domain"
	orderdomain "github.com/cfcdist/orderflow/internal/order/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// amountTolerance accepts payments slightly under the order total, since a
// payment usually covers the total plus shipping but card fees or small
// adjustments can shave a few dollars off.
var amountTolerance = decimal.RequireFromString("0.95")

// candidateLimit caps the heuristic search so a common first name cannot
// fan out across the whole order book.
const candidateLimit = 5

// Payment is one external payment fact to reconcile against orders.
type Payment struct {
	PaymentID   string
	Amount      decimal.Decimal
	Description string
	PayerName   string
	Source      string
}

// ApplyResult reports the per-order outcome of an identifier-based apply.
// A batch never fails as a whole; each order lands in exactly one bucket.
type ApplyResult struct {
	Updated []string `json:"updated"`
	Skipped []string `json:"skipped"`
	Missing []string `json:"missing"`
	Failed  []string `json:"failed"`
}

// MatchResult reports the outcome of a heuristic payer-name match.
type MatchResult struct {
	Matched     bool   `json:"matched"`
	OrderID     string `json:"order_id,omitempty"`
	NeedsReview bool   `json:"needs_review"`
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Orders   orderdomain.Repository
	Service  orderdomain.Service
	Recorder eventdomain.Recorder
}

type Matcher struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	orders   orderdomain.Repository
	service  orderdomain.Service
	recorder eventdomain.Recorder
}

func New(p Params) *Matcher {
	return &Matcher{
		db:       p.DB,
		log:      p.Log.Named("match.matcher"),
		genID:    p.GenID,
		clock:    p.Clock,
		orders:   p.Orders,
		service:  p.Service,
		recorder: p.Recorder,
	}
}

// ApplyPaymentByIDs marks payment_received on every referenced order. The
// payment amount and derived shipping cost are recorded only when the payment
// covers a single order; splitting a multi-order payment would be a guess, so
// those fields stay null for manual review.
func (m *Matcher) ApplyPaymentByIDs(ctx context.Context, pay Payment, orderIDs []string) (ApplyResult, error) {
	result := ApplyResult{
		Updated: []string{},
		Skipped: []string{},
		Missing: []string{},
		Failed:  []string{},
	}
	if len(orderIDs) == 0 {
		if err := m.recordUnmatched(ctx, pay, "no_order_ids_in_description"); err != nil {
			return result, err
		}
		return result, nil
	}

	single := len(orderIDs) == 1
	for _, orderID := range orderIDs {
		supplemental := orderdomain.Supplemental{}
		data := datatypes.JSONMap{
			"payment_id":          pay.PaymentID,
			"payment_amount":      pay.Amount.String(),
			"description":         pay.Description,
			"multi_order_payment": !single,
		}
		if single {
			amount := pay.Amount
			supplemental.PaymentAmount = &amount
			if shipping, ok := m.shippingCost(ctx, orderID, pay.Amount); ok {
				supplemental.ShippingCost = &shipping
				data["shipping_cost"] = shipping.String()
			}
		}

		resp, err := m.service.UpdateCheckpoint(ctx, orderdomain.UpdateCheckpointRequest{
			OrderID:      orderID,
			Checkpoint:   orderdomain.CheckpointPaymentReceived,
			Value:        true,
			Source:       pay.Source,
			Data:         data,
			Supplemental: supplemental,
		})
		switch {
		case errors.Is(err, orderdomain.ErrNotFound):
			result.Missing = append(result.Missing, orderID)
		case err != nil:
			m.log.Warn("payment apply failed",
				zap.String("order_id", orderID),
				zap.String("payment_id", pay.PaymentID),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, orderID)
		case resp.AlreadyApplied:
			result.Skipped = append(result.Skipped, orderID)
		default:
			result.Updated = append(result.Updated, orderID)
		}
	}
	return result, nil
}

// MatchPayment attributes a payment to an order by payer name when the
// description named no order. Candidates are unpaid orders whose customer or
// company name contains the payer's first name token, most recent first; the
// first candidate whose total the amount covers wins. More than one covered
// candidate flags the match for review, since the winner was picked on
// recency alone.
func (m *Matcher) MatchPayment(ctx context.Context, pay Payment) (MatchResult, error) {
	// A matched payment moves its order out of the unpaid pool, so a re-scan
	// of the same notification would fall through to the unmatched path and
	// open a bogus review row. Skip anything already on record.
	if pay.PaymentID != "" {
		handled, err := m.recorder.PaymentHandled(ctx, m.db, pay.PaymentID)
		if err != nil {
			return MatchResult{}, err
		}
		if handled {
			m.log.Debug("payment already handled", zap.String("payment_id", pay.PaymentID))
			return MatchResult{}, nil
		}
	}

	token := firstToken(pay.PayerName)
	if token == "" {
		if err := m.recordUnmatched(ctx, pay, "no_payer_name"); err != nil {
			return MatchResult{}, err
		}
		return MatchResult{}, nil
	}

	candidates, err := m.orders.UnpaidCandidates(ctx, m.db, token, candidateLimit)
	if err != nil {
		return MatchResult{}, err
	}

	var eligible []*orderdomain.Order
	for _, candidate := range candidates {
		if pay.Amount.GreaterThanOrEqual(candidate.OrderTotal.Mul(amountTolerance)) {
			eligible = append(eligible, candidate)
		}
	}
	if len(eligible) == 0 {
		if err := m.recordUnmatched(ctx, pay, "no_amount_match"); err != nil {
			return MatchResult{}, err
		}
		return MatchResult{}, nil
	}

	winner := eligible[0]
	amount := pay.Amount
	_, err = m.service.UpdateCheckpoint(ctx, orderdomain.UpdateCheckpointRequest{
		OrderID:    winner.OrderID,
		Checkpoint: orderdomain.CheckpointPaymentReceived,
		Value:      true,
		Source:     pay.Source,
		Data: datatypes.JSONMap{
			"payment_id":     pay.PaymentID,
			"payment_amount": pay.Amount.String(),
			"payer_name":     pay.PayerName,
			"heuristic":      true,
		},
		Supplemental: orderdomain.Supplemental{PaymentAmount: &amount},
	})
	if err != nil {
		return MatchResult{}, err
	}

	needsReview := len(eligible) > 1
	if needsReview {
		ids := make([]any, 0, len(eligible))
		for _, o := range eligible {
			ids = append(ids, o.OrderID)
		}
		signal := &eventdomain.UnmatchedSignal{
			ID:         m.genID.Generate(),
			SignalType: "ambiguous_payment_match",
			Source:     pay.Source,
			Reason:     "multiple_candidates_covered_by_amount",
			Payload: datatypes.JSONMap{
				"payment_id": pay.PaymentID,
				"amount":     pay.Amount.String(),
				"payer_name": pay.PayerName,
				"matched":    winner.OrderID,
				"candidates": ids,
			},
			CreatedAt: m.clock.Now(),
		}
		if err := m.recorder.AppendUnmatched(ctx, m.db, signal); err != nil {
			return MatchResult{}, err
		}
		m.log.Warn("ambiguous payment match",
			zap.String("payment_id", pay.PaymentID),
			zap.String("matched_order", winner.OrderID),
			zap.Int("eligible", len(eligible)),
		)
	}

	return MatchResult{
		Matched:     true,
		OrderID:     winner.OrderID,
		NeedsReview: needsReview,
	}, nil
}

// shippingCost derives shipping as payment minus order total. A negative
// result means the payment did not cover the order, so nothing is derived.
func (m *Matcher) shippingCost(ctx context.Context, orderID string, amount decimal.Decimal) (decimal.Decimal, bool) {
	order, err := m.orders.FindByID(ctx, m.db, orderID)
	if err != nil || order == nil {
		return decimal.Decimal{}, false
	}
	if order.OrderTotal.IsZero() {
		return decimal.Decimal{}, false
	}
	shipping := amount.Sub(order.OrderTotal)
	if shipping.IsNegative() {
		return decimal.Decimal{}, false
	}
	return shipping, true
}

func (m *Matcher) recordUnmatched(ctx context.Context, pay Payment, reason string) error {
	if pay.PaymentID != "" {
		handled, err := m.recorder.PaymentHandled(ctx, m.db, pay.PaymentID)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}

	signal := &eventdomain.UnmatchedSignal{
		ID:         m.genID.Generate(),
		SignalType: "unmatched_payment",
		Source:     pay.Source,
		Reason:     reason,
		Payload: datatypes.JSONMap{
			"payment_id":  pay.PaymentID,
			"amount":      pay.Amount.String(),
			"description": pay.Description,
			"payer_name":  pay.PayerName,
		},
		CreatedAt: m.clock.Now(),
	}
	if err := m.recorder.AppendUnmatched(ctx, m.db, signal); err != nil {
		return err
	}
	m.log.Info("payment left unmatched",
		zap.String("payment_id", pay.PaymentID),
		zap.String("reason", reason),
	)
	return nil
}

func firstToken(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

var Module = fx.Module("match.matcher",
	fx.Provide(New),
)
