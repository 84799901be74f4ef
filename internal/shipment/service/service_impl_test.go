package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/cfcdist/orderflow/internal/clock"
	"github.com/cfcdist/orderflow/internal/shipment/domain"
	"github.com/cfcdist/orderflow/internal/shipment/repository"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Shipment{}))

	svc := New(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		Clock: clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	return svc, db
}

func TestKeySanitizesWarehouse(t *testing.T) {
	assert.Equal(t, "5319-tampa-distribution", Key("5319", "Tampa Distribution"))
	assert.Equal(t, "5319-st-pete-annex", Key("5319", "St. Pete  Annex"))
}

func TestEnsureIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	shipment, created, err := svc.Ensure(ctx, nil, "5319", "Tampa Distribution")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "5319-tampa-distribution", shipment.ShipmentID)
	assert.Equal(t, domain.StatusNeedsOrder, shipment.Status)

	again, created, err := svc.Ensure(ctx, nil, "5319", "Tampa Distribution")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, shipment.ShipmentID, again.ShipmentID)

	shipments, err := svc.ListByOrder(ctx, "5319")
	require.NoError(t, err)
	assert.Len(t, shipments, 1)
}

func TestTransition(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	shipment, _, err := svc.Ensure(ctx, nil, "5319", "Tampa Distribution")
	require.NoError(t, err)

	updated, err := svc.Transition(ctx, shipment.ShipmentID, domain.StatusAtWarehouse)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAtWarehouse, updated.Status)

	_, err = svc.Transition(ctx, shipment.ShipmentID, domain.Status("lost_at_sea"))
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = svc.Transition(ctx, "5319-nowhere", domain.StatusShipped)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListByOrderSortsByKey(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Ensure(ctx, nil, "5320", "Orlando South")
	require.NoError(t, err)
	_, _, err = svc.Ensure(ctx, nil, "5320", "Jacksonville North")
	require.NoError(t, err)

	shipments, err := svc.ListByOrder(ctx, "5320")
	require.NoError(t, err)
	require.Len(t, shipments, 2)
	assert.Equal(t, "5320-jacksonville-north", shipments[0].ShipmentID)
	assert.Equal(t, "5320-orlando-south", shipments[1].ShipmentID)
}
