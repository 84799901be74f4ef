package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cfcdist/orderflow/internal/clock"
	eventdomain "github.com/cfcdist/orderflow/internal/event/domain"
	"github.com/cfcdist/orderflow/internal/extract"
	orderdomain "github.com/cfcdist/orderflow/internal/order/domain"
	"github.com/cfcdist/orderflow/internal/providers/wholesale"
	shipmentdomain "github.com/cfcdist/orderflow/internal/shipment/domain"
	warehousedomain "github.com/cfcdist/orderflow/internal/warehouse/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WholesaleSyncResult summarizes one upstream catalog sweep.
type WholesaleSyncResult struct {
	Status  string   `json:"status"`
	Found   int      `json:"orders_found"`
	Created []string `json:"orders_created"`
	Updated []string `json:"orders_updated"`
	Errors  []string `json:"errors"`
}

// WholesaleSync mirrors upstream wholesale orders into the local store:
// insert-or-update by order id, line items replaced wholesale, warehouses
// resolved from SKU prefixes into the order's slots, one shipment ensured per
// resolved warehouse. Each order commits on its own; a bad payload skips that
// order only.
type WholesaleSync struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	upstream  *wholesale.Client
	orders    orderdomain.Repository
	warehouse warehousedomain.Service
	shipments shipmentdomain.Service
	recorder  eventdomain.Recorder
}

type WholesaleSyncParams struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Upstream  *wholesale.Client
	Orders    orderdomain.Repository
	Warehouse warehousedomain.Service
	Shipments shipmentdomain.Service
	Recorder  eventdomain.Recorder
}

func NewWholesaleSync(p WholesaleSyncParams) *WholesaleSync {
	return &WholesaleSync{
		db:        p.DB,
		log:       p.Log.Named("sync.wholesale"),
		genID:     p.GenID,
		clock:     p.Clock,
		upstream:  p.Upstream,
		orders:    p.Orders,
		warehouse: p.Warehouse,
		shipments: p.Shipments,
		recorder:  p.Recorder,
	}
}

func (s *WholesaleSync) Run(ctx context.Context, lookback time.Duration) WholesaleSyncResult {
	result := WholesaleSyncResult{
		Status:  "ok",
		Created: []string{},
		Updated: []string{},
		Errors:  []string{},
	}
	if !s.upstream.Configured() {
		result.Status = "skipped"
		return result
	}
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}

	upstreamOrders, err := s.upstream.ListUpdatedSince(ctx, s.clock.Now().Add(-lookback))
	if err != nil {
		result.Status = "error"
		result.Errors = append(result.Errors, fmt.Sprintf("list orders: %v", err))
		return result
	}
	result.Found = len(upstreamOrders)

	for _, upstreamOrder := range upstreamOrders {
		created, err := s.SyncOrder(ctx, &upstreamOrder)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("order %s: %v", upstreamOrder.OrderID, err))
			continue
		}
		if created {
			result.Created = append(result.Created, upstreamOrder.OrderID)
		} else {
			result.Updated = append(result.Updated, upstreamOrder.OrderID)
		}
	}

	s.log.Info("wholesale sync complete",
		zap.Int("found", result.Found),
		zap.Int("created", len(result.Created)),
		zap.Int("updated", len(result.Updated)),
		zap.Int("errors", len(result.Errors)),
	)
	return result
}

// SyncOne fetches a single order from upstream and applies it like a sweep
// entry. Used when an operator knows an order changed and cannot wait for
// the next updated-since window.
func (s *WholesaleSync) SyncOne(ctx context.Context, orderID string) WholesaleSyncResult {
	result := WholesaleSyncResult{
		Status:  "ok",
		Created: []string{},
		Updated: []string{},
		Errors:  []string{},
	}
	if !s.upstream.Configured() {
		result.Status = "skipped"
		return result
	}

	upstreamOrder, err := s.upstream.GetOrder(ctx, orderID)
	if err != nil {
		result.Status = "error"
		result.Errors = append(result.Errors, fmt.Sprintf("get order %s: %v", orderID, err))
		return result
	}
	result.Found = 1

	created, err := s.SyncOrder(ctx, upstreamOrder)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("order %s: %v", orderID, err))
		return result
	}
	if created {
		result.Created = append(result.Created, upstreamOrder.OrderID)
	} else {
		result.Updated = append(result.Updated, upstreamOrder.OrderID)
	}
	return result
}

// SyncOrder applies one upstream payload in a single transaction.
func (s *WholesaleSync) SyncOrder(ctx context.Context, upstreamOrder *wholesale.Order) (bool, error) {
	orderID := strings.TrimSpace(upstreamOrder.OrderID)
	if orderID == "" {
		return false, orderdomain.ErrInvalidOrderID
	}

	now := s.clock.Now()
	items, prefixes := s.buildLineItems(orderID, upstreamOrder.LineItems, now)

	warehouses, err := s.warehouse.Resolve(ctx, prefixes)
	if err != nil {
		return false, err
	}

	var created bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := s.buildOrder(upstreamOrder, now)

		var err error
		created, err = s.orders.Upsert(ctx, tx, record)
		if err != nil {
			return err
		}
		if created {
			// Trust classification happens once, on first sight.
			if _, trusted, terr := s.trustedLookup(ctx, record); terr == nil && trusted {
				if uerr := s.orders.UpdateFields(ctx, tx, orderID, map[string]any{"is_trusted_customer": true}, now); uerr != nil {
					return uerr
				}
			}
			if aerr := s.recorder.Append(ctx, tx, &eventdomain.Event{
				ID:        s.genID.Generate(),
				OrderID:   orderID,
				EventType: "order_created",
				EventData: datatypes.JSONMap{
					"customer_name": record.CustomerName,
					"order_total":   record.OrderTotal.String(),
				},
				Source:    eventdomain.SourceWholesaleSync,
				CreatedAt: now,
			}); aerr != nil {
				return aerr
			}
		}

		if err := s.orders.ReplaceLineItems(ctx, tx, orderID, items); err != nil {
			return err
		}

		if len(warehouses) > 0 {
			merged, err := s.orders.MergeWarehouseSlots(ctx, tx, orderID, warehouses, now)
			if err != nil {
				return err
			}
			// A shipment exists only for resolved warehouses that actually
			// hold a slot; names discarded past the cap get none.
			slots := make(map[string]struct{})
			for _, name := range merged.Warehouses() {
				slots[name] = struct{}{}
			}
			for _, name := range warehouses {
				if _, ok := slots[name]; !ok {
					continue
				}
				if _, _, err := s.shipments.Ensure(ctx, tx, orderID, name); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (s *WholesaleSync) buildOrder(upstreamOrder *wholesale.Order, now time.Time) *orderdomain.Order {
	orderDate := upstreamOrder.OrderDate
	if orderDate.IsZero() {
		orderDate = now
	}
	return &orderdomain.Order{
		OrderID:      strings.TrimSpace(upstreamOrder.OrderID),
		CustomerName: strings.TrimSpace(upstreamOrder.CustomerName),
		CompanyName:  strings.TrimSpace(upstreamOrder.CompanyName),
		Email:        strings.TrimSpace(upstreamOrder.Email),
		Phone:        extract.NormalizePhone(upstreamOrder.Phone),
		Street:       upstreamOrder.Street,
		Street2:      upstreamOrder.Street2,
		City:         upstreamOrder.City,
		State:        upstreamOrder.State,
		Zip:          upstreamOrder.Zip,
		Comments:     upstreamOrder.Comments,
		OrderTotal:   upstreamOrder.OrderTotal,
		TotalWeight:  upstreamOrder.TotalWeight,
		OrderDate:    orderDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *WholesaleSync) buildLineItems(orderID string, upstreamItems []wholesale.LineItem, now time.Time) ([]orderdomain.LineItem, []string) {
	items := make([]orderdomain.LineItem, 0, len(upstreamItems))
	var prefixes []string
	seen := make(map[string]struct{})

	for _, item := range upstreamItems {
		prefix := skuPrefix(item.SKU)
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		items = append(items, orderdomain.LineItem{
			ID:        s.genID.Generate(),
			OrderID:   orderID,
			SKU:       item.SKU,
			SKUPrefix: prefix,
			Name:      item.Name,
			Quantity:  quantity,
			Price:     item.Price,
			CreatedAt: now,
		})
		if prefix == "" {
			continue
		}
		if _, dup := seen[prefix]; dup {
			continue
		}
		seen[prefix] = struct{}{}
		prefixes = append(prefixes, prefix)
	}
	return items, prefixes
}

func (s *WholesaleSync) trustedLookup(ctx context.Context, order *orderdomain.Order) (int, bool, error) {
	return s.warehouse.TrustedGraceDays(ctx, order.CustomerName, order.CompanyName, order.Email)
}

func skuPrefix(sku string) string {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	idx := strings.IndexByte(sku, '-')
	if idx <= 0 {
		return ""
	}
	return sku[:idx]
}
