package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cfcdist/orderflow/internal/clock"
	eventdomain "github.com/cfcdist/orderflow/internal/event/domain"
	eventrepository "github.com/cfcdist/orderflow/internal/event/repository"
	"github.com/cfcdist/orderflow/internal/order/domain"
	"github.com/cfcdist/orderflow/internal/order/repository"
	warehousedomain "github.com/cfcdist/orderflow/internal/warehouse/domain"
	warehouserepository "github.com/cfcdist/orderflow/internal/warehouse/repository"
	warehouseservice "github.com/cfcdist/orderflow/internal/warehouse/service"
	"github.com/cfcdist/orderflow/pkg/db/pagination"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.Order{},
		&domain.LineItem{},
		&eventdomain.Event{},
		&eventdomain.UnmatchedSignal{},
		&warehousedomain.Mapping{},
		&warehousedomain.TrustedCustomer{},
	))

	genID, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	fakeClock := clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	warehouseSvc := warehouseservice.New(warehouseservice.Params{
		DB:   db,
		Log:  log,
		Repo: warehouserepository.Provide(),
	})

	svc := &Service{
		db:        db,
		log:       log,
		genID:     genID,
		clock:     fakeClock,
		repo:      repository.Provide(),
		recorder:  eventrepository.Provide(),
		warehouse: warehouseSvc,
	}
	return svc, db, fakeClock
}

func createOrder(t *testing.T, svc *Service, orderID string) domain.OrderView {
	t.Helper()
	view, err := svc.Create(context.Background(), domain.CreateOrderRequest{
		OrderID:      orderID,
		CustomerName: "Jordan Miller",
		CompanyName:  "Miller Cabinets",
		OrderTotal:   decimal.RequireFromString("2450.00"),
	})
	require.NoError(t, err)
	return view
}

func TestCreateOrder(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	view := createOrder(t, svc, "5317")
	assert.Equal(t, "5317", view.OrderID)
	assert.Equal(t, domain.StatusNeedsPaymentLink, view.CurrentStatus)
	assert.False(t, view.IsTrustedCustomer)

	var events []eventdomain.Event
	require.NoError(t, db.Where("order_id = ?", "5317").Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, "order_created", events[0].EventType)
	assert.Equal(t, eventdomain.SourceManual, events[0].Source)

	_, err := svc.Create(ctx, domain.CreateOrderRequest{OrderID: "5317"})
	assert.ErrorIs(t, err, domain.ErrOrderExists)

	_, err = svc.Create(ctx, domain.CreateOrderRequest{OrderID: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidOrderID)
}

func TestCreateTrustedCustomer(t *testing.T) {
	svc, db, _ := newTestService(t)

	require.NoError(t, db.Create(&warehousedomain.TrustedCustomer{
		ID:        snowflake.ID(1),
		Company:   "Miller Cabinets",
		GraceDays: 7,
	}).Error)

	view := createOrder(t, svc, "5318")
	assert.True(t, view.IsTrustedCustomer)
}

func TestBulkCreateSkipsExisting(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	createOrder(t, svc, "5100")

	resp, err := svc.BulkCreate(ctx, domain.BulkCreateRequest{Orders: []domain.CreateOrderRequest{
		{OrderID: "5100"},
		{OrderID: "5101", CustomerName: "A"},
		{OrderID: "5102", CustomerName: "B"},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"5101", "5102"}, resp.Created)
	assert.Equal(t, []string{"5100"}, resp.Skipped)
}

func TestUpdateCheckpoint(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	createOrder(t, svc, "5200")

	resp, err := svc.UpdateCheckpoint(ctx, domain.UpdateCheckpointRequest{
		OrderID:    "5200",
		Checkpoint: domain.CheckpointPaymentLinkSent,
		Value:      true,
		Source:     eventdomain.SourceEmailSync,
	})
	require.NoError(t, err)
	assert.False(t, resp.AlreadyApplied)
	assert.True(t, resp.Order.PaymentLinkSent)
	require.NotNil(t, resp.Order.PaymentLinkSentAt)
	assert.Equal(t, domain.StatusAwaitingPayment, resp.Order.CurrentStatus)

	// Same signal again is a no-op: no state change, no second event.
	resp, err = svc.UpdateCheckpoint(ctx, domain.UpdateCheckpointRequest{
		OrderID:    "5200",
		Checkpoint: domain.CheckpointPaymentLinkSent,
		Value:      true,
		Source:     eventdomain.SourceEmailSync,
	})
	require.NoError(t, err)
	assert.True(t, resp.AlreadyApplied)

	var count int64
	require.NoError(t, db.Model(&eventdomain.Event{}).
		Where("order_id = ? AND event_type = ?", "5200", "payment_link_sent").
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = svc.UpdateCheckpoint(ctx, domain.UpdateCheckpointRequest{
		OrderID:    "9999",
		Checkpoint: domain.CheckpointPaymentLinkSent,
		Value:      true,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.UpdateCheckpoint(ctx, domain.UpdateCheckpointRequest{
		OrderID:    "5200",
		Checkpoint: domain.Checkpoint("shipped_to_moon"),
		Value:      true,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCheckpoint)
}

func TestUpdateCheckpointUndo(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	createOrder(t, svc, "5201")

	_, err := svc.UpdateCheckpoint(ctx, domain.UpdateCheckpointRequest{
		OrderID:    "5201",
		Checkpoint: domain.CheckpointPaymentReceived,
		Value:      true,
	})
	require.NoError(t, err)

	resp, err := svc.UpdateCheckpoint(ctx, domain.UpdateCheckpointRequest{
		OrderID:    "5201",
		Checkpoint: domain.CheckpointPaymentReceived,
		Value:      false,
	})
	require.NoError(t, err)
	assert.False(t, resp.Order.PaymentReceived)
	assert.Nil(t, resp.Order.PaymentReceivedAt)

	var events []eventdomain.Event
	require.NoError(t, db.Where("order_id = ?", "5201").
		Order("created_at asc, id asc").Find(&events).Error)
	require.Len(t, events, 3)
	assert.Equal(t, "payment_received_undone", events[2].EventType)
}

func TestUpdateCheckpointSupplemental(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	createOrder(t, svc, "5202")

	amount := decimal.RequireFromString("2450.00")
	resp, err := svc.UpdateCheckpoint(ctx, domain.UpdateCheckpointRequest{
		OrderID:    "5202",
		Checkpoint: domain.CheckpointPaymentReceived,
		Value:      true,
		Source:     eventdomain.SourceProcessorAPI,
		Supplemental: domain.Supplemental{
			PaymentAmount: &amount,
		},
	})
	require.NoError(t, err)

	view, err := svc.GetByID(ctx, "5202")
	require.NoError(t, err)
	require.True(t, view.PaymentAmount.Valid)
	assert.True(t, view.PaymentAmount.Decimal.Equal(amount))
	assert.False(t, view.ShippingCost.Valid)
	_ = resp
}

func TestUpdateCheckpointExplicitTimestamp(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	createOrder(t, svc, "5203")

	at := time.Date(2024, 2, 20, 9, 30, 0, 0, time.UTC)
	resp, err := svc.UpdateCheckpoint(ctx, domain.UpdateCheckpointRequest{
		OrderID:    "5203",
		Checkpoint: domain.CheckpointBolSent,
		Value:      true,
		Timestamp:  &at,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Order.BolSentAt)
	assert.Equal(t, at, resp.Order.BolSentAt.UTC())
}

func TestStatusSummary(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	createOrder(t, svc, "5301")
	createOrder(t, svc, "5302")
	createOrder(t, svc, "5303")

	_, err := svc.UpdateCheckpoint(ctx, domain.UpdateCheckpointRequest{
		OrderID: "5302", Checkpoint: domain.CheckpointPaymentLinkSent, Value: true,
	})
	require.NoError(t, err)
	_, err = svc.UpdateCheckpoint(ctx, domain.UpdateCheckpointRequest{
		OrderID: "5303", Checkpoint: domain.CheckpointComplete, Value: true,
	})
	require.NoError(t, err)

	summary, err := svc.StatusSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalOrders)
	assert.Equal(t, 1, summary.CompleteOrders)
	assert.Equal(t, 2, summary.ActiveOrders)
	assert.Equal(t, 1, summary.ByStatus[domain.StatusNeedsPaymentLink])
	assert.Equal(t, 1, summary.ByStatus[domain.StatusAwaitingPayment])
}

func TestStuckOrders(t *testing.T) {
	svc, _, fakeClock := newTestService(t)
	ctx := context.Background()

	createOrder(t, svc, "5400")
	createOrder(t, svc, "5401")
	_, err := svc.UpdateCheckpoint(ctx, domain.UpdateCheckpointRequest{
		OrderID: "5401", Checkpoint: domain.CheckpointComplete, Value: true,
	})
	require.NoError(t, err)

	fakeClock.Advance(5 * 24 * time.Hour)

	stuck, err := svc.StuckOrders(ctx, 3)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, "5400", stuck[0].OrderID)
	assert.Equal(t, domain.StatusNeedsPaymentLink, stuck[0].StuckAt)
	assert.Equal(t, 5, stuck[0].DaysStuck)
}

func TestListFiltersByDerivedStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	createOrder(t, svc, "5500")
	createOrder(t, svc, "5501")
	_, err := svc.UpdateCheckpoint(ctx, domain.UpdateCheckpointRequest{
		OrderID: "5501", Checkpoint: domain.CheckpointPaymentLinkSent, Value: true,
	})
	require.NoError(t, err)

	resp, err := svc.List(ctx, domain.ListOrdersRequest{Status: domain.StatusAwaitingPayment})
	require.NoError(t, err)
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, "5501", resp.Orders[0].OrderID)
}

func TestListStatusFilterPaginates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	createOrder(t, svc, "5502")
	createOrder(t, svc, "5503")
	createOrder(t, svc, "5504")
	createOrder(t, svc, "5505")
	_, err := svc.UpdateCheckpoint(ctx, domain.UpdateCheckpointRequest{
		OrderID: "5505", Checkpoint: domain.CheckpointPaymentLinkSent, Value: true,
	})
	require.NoError(t, err)

	// The status filter participates in the query, so a page is full even
	// when other statuses interleave and the cursor stays consistent.
	resp, err := svc.List(ctx, domain.ListOrdersRequest{
		Status: domain.StatusNeedsPaymentLink,
		Page:   pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, resp.Orders, 2)
	assert.Equal(t, "5504", resp.Orders[0].OrderID)
	assert.Equal(t, "5503", resp.Orders[1].OrderID)
	assert.True(t, resp.PageInfo.HasMore)
	require.NotEmpty(t, resp.PageInfo.NextPageToken)

	resp, err = svc.List(ctx, domain.ListOrdersRequest{
		Status: domain.StatusNeedsPaymentLink,
		Page: pagination.Pagination{
			PageSize:  2,
			PageToken: resp.PageInfo.NextPageToken,
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, "5502", resp.Orders[0].OrderID)
	assert.False(t, resp.PageInfo.HasMore)
}

// blindRepo misses the existence check the way a concurrent writer makes it
// miss, so Create's insert lands on the primary key conflict.
type blindRepo struct {
	domain.Repository
}

func (blindRepo) FindByID(context.Context, *gorm.DB, string) (*domain.Order, error) {
	return nil, nil
}

func TestCreateConcurrentDuplicateIsConflict(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	createOrder(t, svc, "5317")

	svc.repo = blindRepo{svc.repo}
	_, err := svc.Create(ctx, domain.CreateOrderRequest{OrderID: "5317"})
	assert.ErrorIs(t, err, domain.ErrOrderExists)
}
