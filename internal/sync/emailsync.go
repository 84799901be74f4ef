package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/cfcdist/orderflow/internal/clock"
	eventdomain "github.com/cfcdist/orderflow/internal/event/domain"
	"github.com/cfcdist/orderflow/internal/extract"
	"github.com/cfcdist/orderflow/internal/match"
	orderdomain "github.com/cfcdist/orderflow/internal/order/domain"
	"github.com/cfcdist/orderflow/internal/providers/gmail"
	warehousedomain "github.com/cfcdist/orderflow/internal/warehouse/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Mailbox sender patterns for the two structured senders.
const (
	squarePaymentSender = "noreply@messaging.squareup.com"
	rlCarriersSender    = "rlloads@rlcarriers.com"
)

// paymentLinkDomain appears in outbound payment-link emails.
const paymentLinkDomain = "square.link"

// newOrderSubject marks the wholesale storefront's order notification emails.
const newOrderSubject = "New Order"

// EmailSyncResult counts what one mailbox scan detected, per category.
type EmailSyncResult struct {
	Status          string   `json:"status"`
	OrdersCreated   int      `json:"orders_created"`
	PaymentLinks    int      `json:"payment_links"`
	Payments        int      `json:"payments_received"`
	RLQuotes        int      `json:"rl_quotes"`
	TrackingNumbers int      `json:"tracking_numbers"`
	Errors          []string `json:"errors"`
}

// EmailSync scans the mailbox for the five signal categories and applies each
// detected signal to its order. Per-message failures are collected, never
// fatal; a half-scanned mailbox still lands everything it could read.
type EmailSync struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	mailbox   *gmail.Client
	orders    orderdomain.Repository
	service   orderdomain.Service
	matcher   *match.Matcher
	recorder  eventdomain.Recorder
	warehouse warehousedomain.Service
}

type EmailSyncParams struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Mailbox   *gmail.Client
	Orders    orderdomain.Repository
	Service   orderdomain.Service
	Matcher   *match.Matcher
	Recorder  eventdomain.Recorder
	Warehouse warehousedomain.Service
}

func NewEmailSync(p EmailSyncParams) *EmailSync {
	return &EmailSync{
		db:        p.DB,
		log:       p.Log.Named("sync.email"),
		genID:     p.GenID,
		clock:     p.Clock,
		mailbox:   p.Mailbox,
		orders:    p.Orders,
		service:   p.Service,
		matcher:   p.Matcher,
		recorder:  p.Recorder,
		warehouse: p.Warehouse,
	}
}

func (s *EmailSync) Run(ctx context.Context, lookbackHours int) EmailSyncResult {
	result := EmailSyncResult{Status: "ok", Errors: []string{}}
	if !s.mailbox.Configured() {
		result.Status = "skipped"
		return result
	}
	if lookbackHours <= 0 {
		lookbackHours = 2
	}
	timeFilter := fmt.Sprintf("newer_than:%dh", lookbackHours)

	s.scanNewOrders(ctx, timeFilter, &result)
	s.scanPaymentLinks(ctx, timeFilter, &result)
	s.scanPayments(ctx, timeFilter, &result)
	s.scanRLQuotes(ctx, timeFilter, &result)
	s.scanTracking(ctx, timeFilter, &result)

	s.log.Info("email sync complete",
		zap.Int("orders_created", result.OrdersCreated),
		zap.Int("payment_links", result.PaymentLinks),
		zap.Int("payments", result.Payments),
		zap.Int("rl_quotes", result.RLQuotes),
		zap.Int("tracking", result.TrackingNumbers),
		zap.Int("errors", len(result.Errors)),
	)
	return result
}

// scanNewOrders creates orders from storefront order-notification emails.
// The wholesale mirror is the authoritative source; this scan just gets the
// order on the board when a notification lands before the next API pass.
func (s *EmailSync) scanNewOrders(ctx context.Context, timeFilter string, result *EmailSyncResult) {
	query := fmt.Sprintf("%s subject:%q", timeFilter, newOrderSubject)
	s.eachMessage(ctx, query, "new_order", result, func(msg *gmail.Message) error {
		created, err := s.createOrderFromNotification(ctx, msg)
		if err != nil {
			return err
		}
		if created {
			result.OrdersCreated++
		}
		return nil
	})
}

// createOrderFromNotification parses one notification body into a create
// request. Already-known orders and bodies with no usable identifier are
// skipped without error.
func (s *EmailSync) createOrderFromNotification(ctx context.Context, msg *gmail.Message) (bool, error) {
	orderID, ok := extract.OrderID(msg.Subject + " " + msg.Body)
	if !ok {
		return false, nil
	}

	fields := extract.Fields(msg.Body)
	req := orderdomain.CreateOrderRequest{
		OrderID:       orderID,
		CustomerName:  fields.Name,
		CompanyName:   fields.Company,
		Email:         fields.Email,
		Phone:         fields.Phone,
		Comments:      fields.Comments,
		EmailThreadID: msg.ThreadID,
		Source:        eventdomain.SourceEmailSync,
	}
	if fields.HasTotal {
		req.OrderTotal = fields.Total
	}
	if addr, found := extract.ParseAddress(msg.Body); found {
		req.Street = addr.Street
		req.City = addr.City
		req.State = addr.State
		req.Zip = addr.Zip
	}

	_, err := s.service.Create(ctx, req)
	if errors.Is(err, orderdomain.ErrOrderExists) || errors.Is(err, orderdomain.ErrInvalidOrderID) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// Notification bodies usually list the ordered SKUs; resolving them now
	// fills warehouse slots ahead of the next wholesale pass.
	if prefixes := extract.SKUPrefixes(msg.Body); len(prefixes) > 0 {
		warehouses, err := s.warehouse.Resolve(ctx, prefixes)
		if err == nil && len(warehouses) > 0 {
			_, err = s.orders.MergeWarehouseSlots(ctx, s.db, orderID, warehouses, s.clock.Now())
		}
		if err != nil {
			s.log.Warn("warehouse resolution from notification failed",
				zap.String("order_id", orderID), zap.Error(err))
		}
	}
	return true, nil
}

// scanPaymentLinks detects outbound emails carrying a payment link and marks
// the referenced order payment_link_sent.
func (s *EmailSync) scanPaymentLinks(ctx context.Context, timeFilter string, result *EmailSyncResult) {
	query := fmt.Sprintf("%s in:sent %s", timeFilter, paymentLinkDomain)
	s.eachMessage(ctx, query, "payment_link", result, func(msg *gmail.Message) error {
		if !strings.Contains(strings.ToLower(msg.Body), paymentLinkDomain) {
			return nil
		}
		orderID, ok := extract.OrderID(msg.Subject + " " + msg.Body)
		if !ok {
			return nil
		}

		resp, err := s.service.UpdateCheckpoint(ctx, orderdomain.UpdateCheckpointRequest{
			OrderID:    orderID,
			Checkpoint: orderdomain.CheckpointPaymentLinkSent,
			Value:      true,
			Source:     eventdomain.SourceEmailSync,
			Data:       datatypes.JSONMap{"subject": truncate(msg.Subject, 100)},
		})
		if errors.Is(err, orderdomain.ErrNotFound) {
			s.log.Debug("payment link for unknown order", zap.String("order_id", orderID))
			return nil
		}
		if err != nil {
			return err
		}
		if !resp.AlreadyApplied {
			result.PaymentLinks++
		}
		return nil
	})
}

// scanPayments matches processor payment notifications by amount and payer name.
func (s *EmailSync) scanPayments(ctx context.Context, timeFilter string, result *EmailSyncResult) {
	query := fmt.Sprintf("%s from:%s subject:\"payment received\"", timeFilter, squarePaymentSender)
	s.eachMessage(ctx, query, "payment", result, func(msg *gmail.Message) error {
		amount, okAmount := extract.Amount(msg.Subject)
		payer, okPayer := extract.PayerName(msg.Subject)
		if !okAmount || !okPayer {
			return nil
		}

		matched, err := s.matcher.MatchPayment(ctx, match.Payment{
			PaymentID:   msg.ID,
			Amount:      amount,
			Description: truncate(msg.Subject, 100),
			PayerName:   payer,
			Source:      eventdomain.SourceEmailSync,
		})
		if err != nil {
			return err
		}
		if matched.Matched {
			result.Payments++
		}
		return nil
	})
}

// scanRLQuotes captures freight quote numbers into the referenced order.
func (s *EmailSync) scanRLQuotes(ctx context.Context, timeFilter string, result *EmailSyncResult) {
	query := fmt.Sprintf("%s (\"RL Quote\" OR \"quote number\" OR from:%s)", timeFilter, rlCarriersSender)
	s.eachMessage(ctx, query, "rl_quote", result, func(msg *gmail.Message) error {
		quoteNo, ok := extract.RLQuoteNo(msg.Body)
		if !ok {
			return nil
		}
		orderID, ok := extract.OrderID(msg.Subject + " " + msg.Body)
		if !ok {
			return nil
		}

		applied, err := s.applySupplemental(ctx, orderID, "rl_quote_captured",
			orderdomain.Supplemental{RLQuoteNo: quoteNo},
			datatypes.JSONMap{"quote_no": quoteNo},
		)
		if err != nil {
			return err
		}
		if applied {
			result.RLQuotes++
		}
		return nil
	})
}

// scanTracking captures freight PRO numbers and parcel tracking numbers.
func (s *EmailSync) scanTracking(ctx context.Context, timeFilter string, result *EmailSyncResult) {
	query := fmt.Sprintf("%s (PRO OR tracking OR \"has shipped\")", timeFilter)
	s.eachMessage(ctx, query, "tracking", result, func(msg *gmail.Message) error {
		text := msg.Subject + " " + msg.Body

		if proNo, ok := extract.PRONumber(text); ok {
			orderID, found := extract.OrderID(text)
			if !found {
				return nil
			}
			applied, err := s.applySupplemental(ctx, orderID, "tracking_captured",
				orderdomain.Supplemental{
					Tracking:  "R+L PRO " + proNo,
					ProNumber: proNo,
				},
				datatypes.JSONMap{"tracking": proNo, "carrier": "PRO"},
			)
			if err != nil {
				return err
			}
			if applied {
				result.TrackingNumbers++
			}
			return nil
		}

		if trackingNo, ok := extract.UPSTracking(text); ok {
			orderID, found := extract.OrderID(text)
			if !found {
				return nil
			}
			applied, err := s.applySupplemental(ctx, orderID, "tracking_captured",
				orderdomain.Supplemental{Tracking: "UPS " + trackingNo},
				datatypes.JSONMap{"tracking": trackingNo, "carrier": "UPS"},
			)
			if err != nil {
				return err
			}
			if applied {
				result.TrackingNumbers++
			}
			return nil
		}
		return nil
	})
}

// applySupplemental merges carrier fields into an order and records the event
// in the same transaction. Unknown orders are skipped, not errors.
func (s *EmailSync) applySupplemental(ctx context.Context, orderID, eventType string, fields orderdomain.Supplemental, data datatypes.JSONMap) (bool, error) {
	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orders.FindByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return orderdomain.ErrNotFound
		}
		if err := s.orders.MergeSupplemental(ctx, tx, orderID, fields, now); err != nil {
			return err
		}
		return s.recorder.Append(ctx, tx, &eventdomain.Event{
			ID:        s.genID.Generate(),
			OrderID:   orderID,
			EventType: eventType,
			EventData: data,
			Source:    eventdomain.SourceEmailSync,
			CreatedAt: now,
		})
	})
	if errors.Is(err, orderdomain.ErrNotFound) {
		s.log.Debug("signal for unknown order", zap.String("order_id", orderID), zap.String("event_type", eventType))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// eachMessage runs fn over every message matching the query, recording
// per-message failures in the result and moving on.
func (s *EmailSync) eachMessage(ctx context.Context, query, category string, result *EmailSyncResult, fn func(*gmail.Message) error) {
	ids, err := s.mailbox.Search(ctx, query, 50)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s search: %v", category, err))
		return
	}
	for _, id := range ids {
		msg, err := s.mailbox.GetMessage(ctx, id)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s fetch %s: %v", category, id, err))
			continue
		}
		if err := fn(msg); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %v", category, id, err))
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
