package sync

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cfcdist/orderflow/internal/clock"
	"github.com/cfcdist/orderflow/internal/config"
	eventdomain "github.com/cfcdist/orderflow/internal/event/domain"
	eventrepository "github.com/cfcdist/orderflow/internal/event/repository"
	"github.com/cfcdist/orderflow/internal/match"
	orderdomain "github.com/cfcdist/orderflow/internal/order/domain"
	orderrepository "github.com/cfcdist/orderflow/internal/order/repository"
	orderservice "github.com/cfcdist/orderflow/internal/order/service"
	"github.com/cfcdist/orderflow/internal/providers/square"
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

func newTestPaymentSync(t *testing.T, baseURL string) (*PaymentSync, *gorm.DB) {
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
	matcher := match.New(match.Params{
		DB:       db,
		Log:      log,
		GenID:    genID,
		Clock:    fakeClock,
		Orders:   orderRepo,
		Service:  orderSvc,
		Recorder: recorder,
	})

	processor := square.New(config.SquareConfig{
		AccessToken: "test-token",
		LocationID:  "test-location",
		BaseURL:     baseURL,
	}, log)

	return NewPaymentSync(PaymentSyncParams{
		Log:       log,
		Clock:     fakeClock,
		Processor: processor,
		Matcher:   matcher,
	}), db
}

func squareStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/payments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"payments":[
			{"id":"pay-1","status":"COMPLETED","order_id":"sq-ord-1",
			 "amount_money":{"amount":440000,"currency":"USD"},
			 "created_at":"2024-03-01T10:00:00Z"},
			{"id":"pay-2","status":"PENDING","note":"5184 Broke and Poor CFC",
			 "amount_money":{"amount":95000,"currency":"USD"},
			 "created_at":"2024-03-01T11:00:00Z"}
		]}`)
	})
	mux.HandleFunc("/orders/sq-ord-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"order":{"line_items":[{"name":"5317 & 5319 G&B CFC"}]}}`)
	})
	return httptest.NewServer(mux)
}

func TestPaymentSyncAppliesMultiOrderPayment(t *testing.T) {
	server := squareStub(t)
	defer server.Close()

	syncer, db := newTestPaymentSync(t, server.URL)
	for _, id := range []string{"5317", "5319"} {
		require.NoError(t, db.Create(&orderdomain.Order{
			OrderID:    id,
			OrderTotal: decimal.RequireFromString("2000.00"),
			OrderDate:  time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
			CreatedAt:  time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
			UpdatedAt:  time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
		}).Error)
	}

	result := syncer.Run(context.Background(), 24*time.Hour)
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, 1, result.PaymentsFound) // pending payment filtered out
	assert.ElementsMatch(t, []string{"5317", "5319"}, result.Updated)
	assert.Empty(t, result.Errors)

	for _, id := range []string{"5317", "5319"} {
		var order orderdomain.Order
		require.NoError(t, db.First(&order, "order_id = ?", id).Error)
		assert.True(t, order.PaymentReceived, id)
		// Multi-order payment: no per-order amount attribution.
		assert.False(t, order.PaymentAmount.Valid, id)
	}
}

func TestPaymentSyncNotConfigured(t *testing.T) {
	log := zaptest.NewLogger(t)
	syncer := NewPaymentSync(PaymentSyncParams{
		Log:       log,
		Clock:     clock.NewFakeClock(time.Now()),
		Processor: square.New(config.SquareConfig{}, log),
	})

	result := syncer.Run(context.Background(), time.Hour)
	assert.Equal(t, "skipped", result.Status)
}
