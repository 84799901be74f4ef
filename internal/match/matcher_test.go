package match

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cfcdist/orderflow/internal/clock"
	eventdomain "github.com/cfcdist/orderflow/internal/event/domain"
	eventrepository "github.com/cfcdist/orderflow/internal/event/repository"
	orderdomain "github.com/cfcdist/orderflow/internal/order/domain"
	orderrepository "github.com/cfcdist/orderflow/internal/order/repository"
	orderservice "github.com/cfcdist/orderflow/internal/order/service"
	warehousedomain "github.com/cfcdist/orderflow/internal/warehouse/domain"
	warehouserepository "github.com/cfcdist/orderflow/internal/warehouse/repository"
	warehouseservice "github.com/cfcdist/orderflow/internal/warehouse/service"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestMatcher(t *testing.T) (*Matcher, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orderdomain.Order{},
		&orderdomain.LineItem{},
		&eventdomain.Event{},
		&eventdomain.UnmatchedSignal{},
		&warehousedomain.Mapping{},
		&warehousedomain.TrustedCustomer{},
	))

	genID, err := snowflake.NewNode(2)
	require.NoError(t, err)
	log := zaptest.NewLogger(t)
	fakeClock := clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	orderRepo := orderrepository.Provide()
	recorder := eventrepository.Provide()
	warehouseSvc := warehouseservice.New(warehouseservice.Params{
		DB:   db,
		Log:  log,
		Repo: warehouserepository.Provide(),
	})
	orderSvc := orderservice.New(orderservice.Params{
		DB:        db,
		Log:       log,
		GenID:     genID,
		Clock:     fakeClock,
		Repo:      orderRepo,
		Recorder:  recorder,
		Warehouse: warehouseSvc,
	})

	matcher := New(Params{
		DB:       db,
		Log:      log,
		GenID:    genID,
		Clock:    fakeClock,
		Orders:   orderRepo,
		Service:  orderSvc,
		Recorder: recorder,
	})
	return matcher, db, fakeClock
}

func seedOrder(t *testing.T, db *gorm.DB, orderID, customer string, total string, daysAgo int) {
	t.Helper()
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -daysAgo)
	require.NoError(t, db.Create(&orderdomain.Order{
		OrderID:      orderID,
		CustomerName: customer,
		OrderTotal:   decimal.RequireFromString(total),
		OrderDate:    at,
		CreatedAt:    at,
		UpdatedAt:    at,
	}).Error)
}

func TestApplyPaymentSingleOrder(t *testing.T) {
	matcher, db, _ := newTestMatcher(t)
	seedOrder(t, db, "5317", "Greg Barnes", "2450.00", 3)

	result, err := matcher.ApplyPaymentByIDs(context.Background(), Payment{
		PaymentID:   "sq-1",
		Amount:      decimal.RequireFromString("2600.00"),
		Description: "5317 G&B CFC",
		Source:      eventdomain.SourceProcessorAPI,
	}, []string{"5317"})
	require.NoError(t, err)
	assert.Equal(t, []string{"5317"}, result.Updated)

	var order orderdomain.Order
	require.NoError(t, db.First(&order, "order_id = ?", "5317").Error)
	assert.True(t, order.PaymentReceived)
	require.True(t, order.PaymentAmount.Valid)
	assert.True(t, order.PaymentAmount.Decimal.Equal(decimal.RequireFromString("2600.00")))
	require.True(t, order.ShippingCost.Valid)
	assert.True(t, order.ShippingCost.Decimal.Equal(decimal.RequireFromString("150.00")))
}

func TestApplyPaymentMultiOrderLeavesAmountsNull(t *testing.T) {
	matcher, db, _ := newTestMatcher(t)
	seedOrder(t, db, "5317", "Greg Barnes", "2450.00", 3)
	seedOrder(t, db, "5319", "Greg Barnes", "1800.00", 2)

	result, err := matcher.ApplyPaymentByIDs(context.Background(), Payment{
		PaymentID:   "sq-2",
		Amount:      decimal.RequireFromString("4400.00"),
		Description: "5317 & 5319 G&B CFC",
		Source:      eventdomain.SourceProcessorAPI,
	}, []string{"5317", "5319"})
	require.NoError(t, err)
	assert.Equal(t, []string{"5317", "5319"}, result.Updated)

	for _, id := range []string{"5317", "5319"} {
		var order orderdomain.Order
		require.NoError(t, db.First(&order, "order_id = ?", id).Error)
		assert.True(t, order.PaymentReceived, id)
		assert.False(t, order.PaymentAmount.Valid, id)
		assert.False(t, order.ShippingCost.Valid, id)
	}
}

func TestApplyPaymentSkipsPaidAndReportsMissing(t *testing.T) {
	matcher, db, _ := newTestMatcher(t)
	seedOrder(t, db, "5184", "Dana Poor", "900.00", 10)
	require.NoError(t, db.Model(&orderdomain.Order{}).
		Where("order_id = ?", "5184").
		Update("payment_received", true).Error)

	result, err := matcher.ApplyPaymentByIDs(context.Background(), Payment{
		PaymentID: "sq-3",
		Amount:    decimal.RequireFromString("950.00"),
		Source:    eventdomain.SourceProcessorAPI,
	}, []string{"5184", "9999"})
	require.NoError(t, err)
	assert.Equal(t, []string{"5184"}, result.Skipped)
	assert.Equal(t, []string{"9999"}, result.Missing)
	assert.Empty(t, result.Updated)
}

func TestApplyPaymentNoIDsRecordsUnmatched(t *testing.T) {
	matcher, db, _ := newTestMatcher(t)

	result, err := matcher.ApplyPaymentByIDs(context.Background(), Payment{
		PaymentID:   "sq-4",
		Amount:      decimal.RequireFromString("120.00"),
		Description: "misc hardware",
		Source:      eventdomain.SourceProcessorAPI,
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Updated)

	var signals []eventdomain.UnmatchedSignal
	require.NoError(t, db.Find(&signals).Error)
	require.Len(t, signals, 1)
	assert.Equal(t, "unmatched_payment", signals[0].SignalType)
	assert.Equal(t, "no_order_ids_in_description", signals[0].Reason)
}

func TestMatchPaymentPicksMostRecentCovered(t *testing.T) {
	matcher, db, _ := newTestMatcher(t)
	seedOrder(t, db, "5201", "Greg Barnes", "2450.00", 10)
	seedOrder(t, db, "5210", "Greg Barnes", "5000.00", 2)

	// Covers only the older order; the newer one is out of reach.
	result, err := matcher.MatchPayment(context.Background(), Payment{
		PaymentID: "sq-5",
		Amount:    decimal.RequireFromString("2500.00"),
		PayerName: "Greg Barnes",
		Source:    eventdomain.SourceEmailSync,
	})
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "5201", result.OrderID)
	assert.False(t, result.NeedsReview)

	var order orderdomain.Order
	require.NoError(t, db.First(&order, "order_id = ?", "5201").Error)
	assert.True(t, order.PaymentReceived)
	require.True(t, order.PaymentAmount.Valid)
}

func TestMatchPaymentAmbiguousFlagsReview(t *testing.T) {
	matcher, db, _ := newTestMatcher(t)
	seedOrder(t, db, "5201", "Greg Barnes", "1000.00", 10)
	seedOrder(t, db, "5210", "Greg Barnes", "1100.00", 2)

	result, err := matcher.MatchPayment(context.Background(), Payment{
		PaymentID: "sq-6",
		Amount:    decimal.RequireFromString("1200.00"),
		PayerName: "Greg Barnes",
		Source:    eventdomain.SourceEmailSync,
	})
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "5210", result.OrderID)
	assert.True(t, result.NeedsReview)

	var signals []eventdomain.UnmatchedSignal
	require.NoError(t, db.Where("signal_type = ?", "ambiguous_payment_match").Find(&signals).Error)
	require.Len(t, signals, 1)
}

func TestMatchPaymentNoCandidateRecordsUnmatched(t *testing.T) {
	matcher, db, _ := newTestMatcher(t)
	seedOrder(t, db, "5201", "Greg Barnes", "9000.00", 2)

	result, err := matcher.MatchPayment(context.Background(), Payment{
		PaymentID: "sq-7",
		Amount:    decimal.RequireFromString("500.00"),
		PayerName: "Greg Barnes",
		Source:    eventdomain.SourceEmailSync,
	})
	require.NoError(t, err)
	assert.False(t, result.Matched)

	var signals []eventdomain.UnmatchedSignal
	require.NoError(t, db.Where("signal_type = ?", "unmatched_payment").Find(&signals).Error)
	require.Len(t, signals, 1)
	assert.Equal(t, "no_amount_match", signals[0].Reason)
}

func TestMatchPaymentRescanIsNoOp(t *testing.T) {
	matcher, db, _ := newTestMatcher(t)
	seedOrder(t, db, "5201", "Greg Barnes", "2450.00", 3)

	pay := Payment{
		PaymentID: "sq-8",
		Amount:    decimal.RequireFromString("2500.00"),
		PayerName: "Greg Barnes",
		Source:    eventdomain.SourceEmailSync,
	}
	result, err := matcher.MatchPayment(context.Background(), pay)
	require.NoError(t, err)
	assert.True(t, result.Matched)

	// The matched order left the unpaid pool, so a second pass over the same
	// notification must not fall through and open a review row.
	result, err = matcher.MatchPayment(context.Background(), pay)
	require.NoError(t, err)
	assert.False(t, result.Matched)

	var signals []eventdomain.UnmatchedSignal
	require.NoError(t, db.Find(&signals).Error)
	assert.Empty(t, signals)

	var count int64
	require.NoError(t, db.Model(&eventdomain.Event{}).
		Where("event_type = ?", "payment_received").
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestMatchPaymentUnmatchedRecordedOnce(t *testing.T) {
	matcher, db, _ := newTestMatcher(t)

	pay := Payment{
		PaymentID: "sq-9",
		Amount:    decimal.RequireFromString("500.00"),
		PayerName: "Greg Barnes",
		Source:    eventdomain.SourceEmailSync,
	}
	_, err := matcher.MatchPayment(context.Background(), pay)
	require.NoError(t, err)
	_, err = matcher.MatchPayment(context.Background(), pay)
	require.NoError(t, err)

	var signals []eventdomain.UnmatchedSignal
	require.NoError(t, db.Find(&signals).Error)
	require.Len(t, signals, 1)
	assert.Equal(t, "no_amount_match", signals[0].Reason)
}

func TestApplyPaymentNoIDsRecordedOnce(t *testing.T) {
	matcher, db, _ := newTestMatcher(t)

	pay := Payment{
		PaymentID:   "sq-10",
		Amount:      decimal.RequireFromString("120.00"),
		Description: "misc hardware",
		Source:      eventdomain.SourceProcessorAPI,
	}
	_, err := matcher.ApplyPaymentByIDs(context.Background(), pay, nil)
	require.NoError(t, err)
	_, err = matcher.ApplyPaymentByIDs(context.Background(), pay, nil)
	require.NoError(t, err)

	var signals []eventdomain.UnmatchedSignal
	require.NoError(t, db.Find(&signals).Error)
	require.Len(t, signals, 1)
}
