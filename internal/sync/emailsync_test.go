package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cfcdist/orderflow/internal/clock"
	"github.com/cfcdist/orderflow/internal/config"
	eventdomain "github.com/cfcdist/orderflow/internal/event/domain"
	eventrepository "github.com/cfcdist/orderflow/internal/event/repository"
	orderdomain "github.com/cfcdist/orderflow/internal/order/domain"
	orderrepository "github.com/cfcdist/orderflow/internal/order/repository"
	orderservice "github.com/cfcdist/orderflow/internal/order/service"
	"github.com/cfcdist/orderflow/internal/providers/gmail"
	warehousedomain "github.com/cfcdist/orderflow/internal/warehouse/domain"
	warehouserepository "github.com/cfcdist/orderflow/internal/warehouse/repository"
	warehouseservice "github.com/cfcdist/orderflow/internal/warehouse/service"
)

func newTestEmailSync(t *testing.T) (*EmailSync, *gorm.DB) {
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

	genID, err := snowflake.NewNode(6)
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

	return &EmailSync{
		db:        db,
		log:       log,
		genID:     genID,
		clock:     fakeClock,
		mailbox:   gmail.New(config.GmailConfig{}, log),
		orders:    orderRepo,
		service:   orderSvc,
		recorder:  recorder,
		warehouse: warehouseSvc,
	}, db
}

func TestEmailSyncNotConfigured(t *testing.T) {
	s, _ := newTestEmailSync(t)

	result := s.Run(context.Background(), 2)
	assert.Equal(t, "skipped", result.Status)
	assert.Empty(t, result.Errors)
}

func TestCreateOrderFromNotification(t *testing.T) {
	s, db := newTestEmailSync(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&warehousedomain.Mapping{
		SKUPrefix: "HSS",
		Warehouse: "Tampa Distribution",
	}).Error)

	msg := &gmail.Message{
		ID:       "msg-1",
		ThreadID: "thread-1",
		Subject:  "New Order #5319",
		Body: "Name: Dana Whitfield\n" +
			"Company: Whitfield Builders\n" +
			"Phone: (352) 555-0134\n" +
			"Email: Dana@Example.com\n" +
			"Comments: call before delivery\n" +
			"Total: $2,450.00\n" +
			"Items: HSS-B12, HSS-W3030\n" +
			"4943 SE 10th Place\n" +
			"Keystone Heights  FL  32656\n",
	}

	created, err := s.createOrderFromNotification(ctx, msg)
	require.NoError(t, err)
	assert.True(t, created)

	var order orderdomain.Order
	require.NoError(t, db.First(&order, "order_id = ?", "5319").Error)
	assert.Equal(t, "Dana Whitfield", order.CustomerName)
	assert.Equal(t, "Whitfield Builders", order.CompanyName)
	assert.Equal(t, "352-555-0134", order.Phone)
	assert.Equal(t, "dana@example.com", order.Email)
	assert.Equal(t, "4943 SE 10th Place", order.Street)
	assert.Equal(t, "Keystone Heights", order.City)
	assert.Equal(t, "FL", order.State)
	assert.Equal(t, "32656", order.Zip)
	assert.Equal(t, "thread-1", order.EmailThreadID)
	assert.True(t, order.OrderTotal.Equal(decimal.RequireFromString("2450.00")))
	assert.Equal(t, "Tampa Distribution", order.Warehouse1)

	// The same notification seen twice does not duplicate the order.
	created, err = s.createOrderFromNotification(ctx, msg)
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, db.Model(&eventdomain.Event{}).Where("event_type = ?", "order_created").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestApplySupplementalMergesAndRecords(t *testing.T) {
	s, db := newTestEmailSync(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&orderdomain.Order{
		OrderID:      "5317",
		CustomerName: "Dana Whitfield",
		OrderTotal:   decimal.RequireFromString("2450.00"),
		OrderDate:    time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
	}).Error)

	applied, err := s.applySupplemental(ctx, "5317", "rl_quote_captured",
		orderdomain.Supplemental{RLQuoteNo: "40123456"},
		datatypes.JSONMap{"quote_no": "40123456"})
	require.NoError(t, err)
	assert.True(t, applied)

	var order orderdomain.Order
	require.NoError(t, db.First(&order, "order_id = ?", "5317").Error)
	assert.Equal(t, "40123456", order.RLQuoteNo)

	var events []eventdomain.Event
	require.NoError(t, db.Find(&events, "order_id = ?", "5317").Error)
	require.Len(t, events, 1)
	assert.Equal(t, "rl_quote_captured", events[0].EventType)
	assert.Equal(t, eventdomain.SourceEmailSync, events[0].Source)
}

func TestApplySupplementalUnknownOrderSkips(t *testing.T) {
	s, db := newTestEmailSync(t)

	applied, err := s.applySupplemental(context.Background(), "9999", "rl_quote_captured",
		orderdomain.Supplemental{RLQuoteNo: "40123456"}, datatypes.JSONMap{})
	require.NoError(t, err)
	assert.False(t, applied)

	var count int64
	require.NoError(t, db.Model(&eventdomain.Event{}).Count(&count).Error)
	assert.Zero(t, count)
}

