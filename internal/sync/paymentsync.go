package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/cfcdist/orderflow/internal/clock"
	eventdomain "github.com/cfcdist/orderflow/internal/event/domain"
	"github.com/cfcdist/orderflow/internal/extract"
	"github.com/cfcdist/orderflow/internal/match"
	"github.com/cfcdist/orderflow/internal/providers/square"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// PaymentSyncResult summarizes one processor sweep.
type PaymentSyncResult struct {
	Status        string   `json:"status"`
	PaymentsFound int      `json:"payments_found"`
	Updated       []string `json:"orders_updated"`
	Skipped       []string `json:"orders_skipped"`
	Unmatched     int      `json:"payments_unmatched"`
	Errors        []string `json:"errors"`
}

// PaymentSync pulls completed payments from the processor API and applies
// them by the order ids parsed out of each payment's description. The API is
// authoritative, so a payment whose description names orders is applied
// directly; only descriptions naming nothing fall back to review.
type PaymentSync struct {
	log       *zap.Logger
	clock     clock.Clock
	processor *square.Client
	matcher   *match.Matcher
}

type PaymentSyncParams struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Processor *square.Client
	Matcher   *match.Matcher
}

func NewPaymentSync(p PaymentSyncParams) *PaymentSync {
	return &PaymentSync{
		log:       p.Log.Named("sync.payment"),
		clock:     p.Clock,
		processor: p.Processor,
		matcher:   p.Matcher,
	}
}

func (s *PaymentSync) Run(ctx context.Context, lookback time.Duration) PaymentSyncResult {
	result := PaymentSyncResult{
		Status:  "ok",
		Updated: []string{},
		Skipped: []string{},
		Errors:  []string{},
	}
	if !s.processor.Configured() {
		result.Status = "skipped"
		return result
	}
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}

	payments, err := s.processor.ListCompletedPayments(ctx, s.clock.Now().Add(-lookback))
	if err != nil {
		result.Status = "error"
		result.Errors = append(result.Errors, fmt.Sprintf("list payments: %v", err))
		return result
	}
	result.PaymentsFound = len(payments)

	for _, payment := range payments {
		description := s.description(ctx, payment)
		orderIDs := extract.PaymentOrderIDs(description)

		applied, err := s.matcher.ApplyPaymentByIDs(ctx, match.Payment{
			PaymentID:   payment.ID,
			Amount:      payment.Amount,
			Description: description,
			PayerName:   payment.BuyerEmail,
			Source:      eventdomain.SourceProcessorAPI,
		}, orderIDs)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("payment %s: %v", payment.ID, err))
			continue
		}

		result.Updated = append(result.Updated, applied.Updated...)
		result.Skipped = append(result.Skipped, applied.Skipped...)
		if len(orderIDs) == 0 {
			result.Unmatched++
		}
		for _, missing := range applied.Missing {
			result.Errors = append(result.Errors, fmt.Sprintf("payment %s: order %s not found", payment.ID, missing))
		}
	}

	s.log.Info("payment sync complete",
		zap.Int("found", result.PaymentsFound),
		zap.Int("updated", len(result.Updated)),
		zap.Int("unmatched", result.Unmatched),
		zap.Int("errors", len(result.Errors)),
	)
	return result
}

// description recovers the payment-link label. Dashboard-created links store
// it on the linked processor order's first line item; the note field is the
// fallback for API-created payments.
func (s *PaymentSync) description(ctx context.Context, payment square.Payment) string {
	if payment.OrderID != "" {
		if note, err := s.processor.GetOrderNote(ctx, payment.OrderID); err == nil && note != "" {
			return note
		}
	}
	return payment.Note
}
