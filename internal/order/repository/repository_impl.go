package repository

import (
	"context"
	"strings"
	"time"

	"github.com/cfcdist/orderflow/internal/order/domain"
	"github.com/cfcdist/orderflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Create(order).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Limit(1).
		Find(&order).Error
	if err != nil {
		return nil, err
	}
	if order.OrderID == "" {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Order, error) {
	stmt := db.WithContext(ctx).Model(&domain.Order{})
	if !filter.IncludeComplete {
		stmt = stmt.Where("is_complete = ?", false)
	}
	if filter.Supplier != "" {
		stmt = stmt.Where("supplier = ?", filter.Supplier)
	}
	if filter.Status != "" {
		clause, args := statusClause(filter.Status)
		stmt = stmt.Where(clause, args...)
	}

	if page.PageSize <= 0 {
		page.PageSize = 50
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err == nil && cursor.CreatedAt != "" {
			if at, perr := time.Parse(time.RFC3339, cursor.CreatedAt); perr == nil {
				stmt = stmt.Where(
					"created_at < ? OR (created_at = ? AND order_id < ?)",
					at, at, cursor.OrderID,
				)
			}
		}
	}

	var orders []*domain.Order
	err := stmt.
		Order("created_at desc, order_id desc").
		Limit(page.PageSize + 1).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// statusClause expresses a derived status as the checkpoint flag combination
// that produces it, so status-filtered listings paginate like any other scan.
// The cascade mirrors Order.Status: each status is its flag plus the negation
// of every more advanced one. Unknown values match nothing; the handler
// rejects them before they reach here.
func statusClause(status string) (string, []any) {
	switch status {
	case domain.StatusComplete:
		return "is_complete = ?", []any{true}
	case domain.StatusAwaitingShipment:
		return "is_complete = ? AND bol_sent = ?", []any{false, true}
	case domain.StatusNeedsBol:
		return "is_complete = ? AND bol_sent = ? AND warehouse_confirmed = ?",
			[]any{false, false, true}
	case domain.StatusAwaitingWarehouse:
		return "is_complete = ? AND bol_sent = ? AND warehouse_confirmed = ? AND sent_to_warehouse = ?",
			[]any{false, false, false, true}
	case domain.StatusNeedsWarehouse:
		return "is_complete = ? AND bol_sent = ? AND warehouse_confirmed = ? AND sent_to_warehouse = ? AND payment_received = ?",
			[]any{false, false, false, false, true}
	case domain.StatusAwaitingPayment:
		return "is_complete = ? AND bol_sent = ? AND warehouse_confirmed = ? AND sent_to_warehouse = ? AND payment_received = ? AND payment_link_sent = ?",
			[]any{false, false, false, false, false, true}
	case domain.StatusNeedsPaymentLink:
		return "is_complete = ? AND bol_sent = ? AND warehouse_confirmed = ? AND sent_to_warehouse = ? AND payment_received = ? AND payment_link_sent = ?",
			[]any{false, false, false, false, false, false}
	default:
		return "1 = 0", nil
	}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, order *domain.Order) (bool, error) {
	existing, err := r.FindByID(ctx, db, order.OrderID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return true, db.WithContext(ctx).Create(order).Error
	}

	// Refresh header and address fields only; checkpoint state and
	// reconciliation-owned fields stay as they are.
	updates := map[string]any{
		"customer_name": order.CustomerName,
		"company_name":  order.CompanyName,
		"email":         order.Email,
		"phone":         order.Phone,
		"street":        order.Street,
		"street2":       order.Street2,
		"city":          order.City,
		"state":         order.State,
		"zip":           order.Zip,
		"comments":      order.Comments,
		"order_total":   order.OrderTotal,
		"total_weight":  order.TotalWeight,
		"updated_at":    order.UpdatedAt,
	}
	if !order.OrderDate.IsZero() {
		updates["order_date"] = order.OrderDate
	}
	err = db.WithContext(ctx).Model(&domain.Order{}).
		Where("order_id = ?", order.OrderID).
		Updates(updates).Error
	return false, err
}

func (r *repo) UnpaidCandidates(ctx context.Context, db *gorm.DB, token string, limit int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = 5
	}
	like := "%" + strings.ToLower(token) + "%"
	var orders []*domain.Order
	err := db.WithContext(ctx).
		Where("payment_received = ?", false).
		Where("LOWER(customer_name) LIKE ? OR LOWER(company_name) LIKE ?", like, like).
		Order("order_date desc").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) ApplyCheckpoint(ctx context.Context, db *gorm.DB, orderID string, cp domain.Checkpoint, value bool, at time.Time, now time.Time) error {
	updates := map[string]any{
		cp.FlagColumn(): value,
		"updated_at":    now,
	}
	if value {
		updates[cp.TimeColumn()] = at.UTC()
	} else {
		updates[cp.TimeColumn()] = nil
	}

	result := db.WithContext(ctx).Model(&domain.Order{}).
		Where("order_id = ?", orderID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) MergeSupplemental(ctx context.Context, db *gorm.DB, orderID string, fields domain.Supplemental, now time.Time) error {
	if fields.Empty() {
		return nil
	}
	updates := map[string]any{"updated_at": now}
	if fields.PaymentAmount != nil {
		updates["payment_amount"] = *fields.PaymentAmount
	}
	if fields.ShippingCost != nil {
		updates["shipping_cost"] = *fields.ShippingCost
	}
	if fields.RLQuoteNo != "" {
		updates["rl_quote_no"] = fields.RLQuoteNo
	}
	if fields.Tracking != "" {
		updates["tracking"] = fields.Tracking
	}
	if fields.ProNumber != "" {
		updates["pro_number"] = fields.ProNumber
	}
	if fields.Supplier != "" {
		updates["supplier"] = fields.Supplier
	}
	if fields.SupplierOrderNo != "" {
		updates["supplier_order_no"] = fields.SupplierOrderNo
	}
	return db.WithContext(ctx).Model(&domain.Order{}).
		Where("order_id = ?", orderID).
		Updates(updates).Error
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, orderID string, fields map[string]any, now time.Time) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = now
	result := db.WithContext(ctx).Model(&domain.Order{}).
		Where("order_id = ?", orderID).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) MergeWarehouseSlots(ctx context.Context, db *gorm.DB, orderID string, warehouses []string, now time.Time) (*domain.Order, error) {
	order, err := r.FindByID(ctx, db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}

	slots := []*string{&order.Warehouse1, &order.Warehouse2, &order.Warehouse3, &order.Warehouse4}
	occupied := make(map[string]struct{})
	for _, slot := range slots {
		if *slot != "" {
			occupied[*slot] = struct{}{}
		}
	}

	changed := false
	for _, name := range warehouses {
		if name == "" {
			continue
		}
		if _, ok := occupied[name]; ok {
			continue
		}
		placed := false
		for _, slot := range slots {
			if *slot == "" {
				*slot = name
				occupied[name] = struct{}{}
				changed = true
				placed = true
				break
			}
		}
		if !placed {
			// All four slots taken; extra warehouses are discarded.
			break
		}
	}

	if !changed {
		return order, nil
	}

	order.UpdatedAt = now
	err = db.WithContext(ctx).Model(&domain.Order{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{
			"warehouse_1": order.Warehouse1,
			"warehouse_2": order.Warehouse2,
			"warehouse_3": order.Warehouse3,
			"warehouse_4": order.Warehouse4,
			"updated_at":  now,
		}).Error
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repo) ReplaceLineItems(ctx context.Context, db *gorm.DB, orderID string, items []domain.LineItem) error {
	if err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&domain.LineItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) ListLineItems(ctx context.Context, db *gorm.DB, orderID string) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) StatusCounts(ctx context.Context, db *gorm.DB) (map[string]int, int, int, error) {
	var orders []*domain.Order
	if err := db.WithContext(ctx).Find(&orders).Error; err != nil {
		return nil, 0, 0, err
	}

	counts := make(map[string]int)
	complete := 0
	for _, o := range orders {
		if o.IsComplete {
			complete++
			continue
		}
		counts[o.Status()]++
	}
	return counts, len(orders), complete, nil
}

func (r *repo) ListIncomplete(ctx context.Context, db *gorm.DB) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := db.WithContext(ctx).
		Where("is_complete = ?", false).
		Order("created_at asc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
