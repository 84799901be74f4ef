package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/cfcdist/orderflow/internal/clock"
	eventdomain "github.com/cfcdist/orderflow/internal/event/domain"
	"github.com/cfcdist/orderflow/internal/order/domain"
	warehousedomain "github.com/cfcdist/orderflow/internal/warehouse/domain"
	"github.com/cfcdist/orderflow/pkg/db"
	"github.com/cfcdist/orderflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Recorder  eventdomain.Recorder
	Warehouse warehousedomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	recorder  eventdomain.Recorder
	warehouse warehousedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("order.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		recorder:  p.Recorder,
		warehouse: p.Warehouse,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (domain.OrderView, error) {
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" || strings.ContainsAny(orderID, " \t\n") {
		return domain.OrderView{}, domain.ErrInvalidOrderID
	}

	now := s.clock.Now()
	order := domain.Order{
		OrderID:       orderID,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CompanyName:   strings.TrimSpace(req.CompanyName),
		Email:         strings.TrimSpace(req.Email),
		Phone:         strings.TrimSpace(req.Phone),
		Street:        req.Street,
		Street2:       req.Street2,
		City:          req.City,
		State:         req.State,
		Zip:           req.Zip,
		Comments:      req.Comments,
		OrderTotal:    req.OrderTotal,
		TotalWeight:   req.TotalWeight,
		OrderDate:     now,
		EmailThreadID: req.EmailThreadID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.OrderDate != nil {
		order.OrderDate = req.OrderDate.UTC()
	}

	_, trusted, err := s.trustedLookup(ctx, order)
	if err != nil {
		return domain.OrderView{}, err
	}
	order.IsTrustedCustomer = trusted

	source := req.Source
	if source == "" {
		source = eventdomain.SourceManual
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrOrderExists
		}
		if err := s.repo.Insert(ctx, tx, &order); err != nil {
			return err
		}
		return s.recorder.Append(ctx, tx, &eventdomain.Event{
			ID:        s.genID.Generate(),
			OrderID:   orderID,
			EventType: "order_created",
			EventData: datatypes.JSONMap{
				"customer_name": order.CustomerName,
				"order_total":   order.OrderTotal.String(),
			},
			Source:    source,
			CreatedAt: now,
		})
	})
	// Two sources can race past the existence check; the primary key turns
	// the loser's insert into the same conflict as a plain duplicate.
	if db.IsDuplicateKeyErr(err) {
		return domain.OrderView{}, domain.ErrOrderExists
	}
	if err != nil {
		return domain.OrderView{}, err
	}

	s.log.Info("order created",
		zap.String("order_id", orderID),
		zap.Bool("trusted", trusted),
		zap.String("source", source),
	)
	return s.view(&order), nil
}

func (s *Service) BulkCreate(ctx context.Context, req domain.BulkCreateRequest) (domain.BulkCreateResponse, error) {
	resp := domain.BulkCreateResponse{
		Created: []string{},
		Skipped: []string{},
	}
	for _, item := range req.Orders {
		_, err := s.Create(ctx, item)
		switch {
		case err == nil:
			resp.Created = append(resp.Created, strings.TrimSpace(item.OrderID))
		case errors.Is(err, domain.ErrOrderExists) || errors.Is(err, domain.ErrInvalidOrderID):
			resp.Skipped = append(resp.Skipped, strings.TrimSpace(item.OrderID))
		default:
			// One order's failure never aborts the rest of the batch.
			s.log.Warn("bulk create item failed",
				zap.String("order_id", item.OrderID),
				zap.Error(err),
			)
			resp.Skipped = append(resp.Skipped, strings.TrimSpace(item.OrderID))
		}
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, orderID string) (domain.OrderView, error) {
	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return domain.OrderView{}, err
	}
	if order == nil {
		return domain.OrderView{}, domain.ErrNotFound
	}
	return s.view(order), nil
}

func (s *Service) List(ctx context.Context, req domain.ListOrdersRequest) (domain.ListOrdersResponse, error) {
	if req.Page.PageSize <= 0 {
		req.Page.PageSize = 50
	}

	filter := domain.ListFilter{
		Status:          req.Status,
		Supplier:        req.Supplier,
		IncludeComplete: req.IncludeComplete,
	}
	orders, err := s.repo.List(ctx, s.db, filter, req.Page)
	if err != nil {
		return domain.ListOrdersResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(orders, req.Page.PageSize, func(o *domain.Order) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			OrderID:   o.OrderID,
			CreatedAt: o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
		return token
	})
	if len(orders) > req.Page.PageSize {
		orders = orders[:req.Page.PageSize]
	}

	views := make([]domain.OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, s.view(o))
	}
	return domain.ListOrdersResponse{
		PageInfo: *pageInfo,
		Orders:   views,
	}, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateOrderRequest) (domain.OrderView, error) {
	fields := make(map[string]any)
	if req.CustomerName != nil {
		fields["customer_name"] = strings.TrimSpace(*req.CustomerName)
	}
	if req.Supplier != nil {
		fields["supplier"] = strings.TrimSpace(*req.Supplier)
	}
	if req.SupplierOrderNo != nil {
		fields["supplier_order_no"] = strings.TrimSpace(*req.SupplierOrderNo)
	}
	if req.Comments != nil {
		fields["comments"] = *req.Comments
	}

	if len(fields) > 0 {
		if err := s.repo.UpdateFields(ctx, s.db, req.OrderID, fields, s.clock.Now()); err != nil {
			return domain.OrderView{}, err
		}
	}
	return s.GetByID(ctx, req.OrderID)
}

// UpdateCheckpoint applies one signal as a state transition. The idempotency
// check re-reads the order inside the transaction, so two concurrent signals
// for the same flag produce exactly one state change and one event.
func (s *Service) UpdateCheckpoint(ctx context.Context, req domain.UpdateCheckpointRequest) (domain.UpdateCheckpointResponse, error) {
	if _, err := domain.ParseCheckpoint(string(req.Checkpoint)); err != nil {
		return domain.UpdateCheckpointResponse{}, err
	}

	source := req.Source
	if source == "" {
		source = eventdomain.SourceManual
	}
	now := s.clock.Now()
	at := now
	if req.Timestamp != nil {
		at = req.Timestamp.UTC()
	}

	var (
		order          *domain.Order
		alreadyApplied bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.repo.FindByID(ctx, tx, req.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound
		}

		if order.Flag(req.Checkpoint) == req.Value {
			alreadyApplied = true
			return nil
		}

		if err := s.repo.ApplyCheckpoint(ctx, tx, req.OrderID, req.Checkpoint, req.Value, at, now); err != nil {
			return err
		}
		if !req.Supplemental.Empty() {
			if err := s.repo.MergeSupplemental(ctx, tx, req.OrderID, req.Supplemental, now); err != nil {
				return err
			}
		}
		order.SetFlag(req.Checkpoint, req.Value, at)

		eventType := string(req.Checkpoint)
		if !req.Value {
			eventType = req.Checkpoint.UndoneEventType()
		}
		data := datatypes.JSONMap{}
		for k, v := range req.Data {
			data[k] = v
		}
		return s.recorder.Append(ctx, tx, &eventdomain.Event{
			ID:        s.genID.Generate(),
			OrderID:   req.OrderID,
			EventType: eventType,
			EventData: data,
			Source:    source,
			CreatedAt: now,
		})
	})
	if err != nil {
		return domain.UpdateCheckpointResponse{}, err
	}

	if alreadyApplied {
		s.log.Debug("checkpoint already applied",
			zap.String("order_id", req.OrderID),
			zap.String("checkpoint", string(req.Checkpoint)),
			zap.Bool("value", req.Value),
			zap.String("source", source),
		)
	} else {
		s.log.Info("checkpoint applied",
			zap.String("order_id", req.OrderID),
			zap.String("checkpoint", string(req.Checkpoint)),
			zap.Bool("value", req.Value),
			zap.String("source", source),
		)
	}

	return domain.UpdateCheckpointResponse{
		Order:          s.view(order),
		Checkpoint:     req.Checkpoint,
		Value:          req.Value,
		AlreadyApplied: alreadyApplied,
	}, nil
}

func (s *Service) Events(ctx context.Context, orderID string) ([]eventdomain.Event, error) {
	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return s.recorder.ListByOrder(ctx, s.db, orderID)
}

func (s *Service) LineItems(ctx context.Context, orderID string) ([]domain.LineItem, error) {
	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return s.repo.ListLineItems(ctx, s.db, orderID)
}

func (s *Service) StatusSummary(ctx context.Context) (domain.StatusSummary, error) {
	counts, total, complete, err := s.repo.StatusCounts(ctx, s.db)
	if err != nil {
		return domain.StatusSummary{}, err
	}
	return domain.StatusSummary{
		TotalOrders:    total,
		CompleteOrders: complete,
		ActiveOrders:   total - complete,
		ByStatus:       counts,
	}, nil
}

func (s *Service) StuckOrders(ctx context.Context, minDays int) ([]domain.StuckOrder, error) {
	if minDays <= 0 {
		minDays = 3
	}
	orders, err := s.repo.ListIncomplete(ctx, s.db)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	stuck := make([]domain.StuckOrder, 0)
	for _, o := range orders {
		stage, since, ok := o.StuckAt()
		if !ok {
			continue
		}
		days := int(now.Sub(since).Hours() / 24)
		if days < minDays {
			continue
		}
		stuck = append(stuck, domain.StuckOrder{
			OrderID:      o.OrderID,
			CustomerName: o.CustomerName,
			Supplier:     o.Supplier,
			StuckAt:      stage,
			StuckSince:   since,
			DaysStuck:    days,
		})
	}
	return stuck, nil
}

func (s *Service) trustedLookup(ctx context.Context, order domain.Order) (int, bool, error) {
	days, ok, err := s.warehouse.TrustedGraceDays(ctx, order.CustomerName, order.CompanyName, order.Email)
	if err != nil {
		return 0, false, err
	}
	return days, ok, nil
}

func (s *Service) view(order *domain.Order) domain.OrderView {
	days := int(s.clock.Now().Sub(order.CreatedAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return domain.OrderView{
		Order:         *order,
		CurrentStatus: order.Status(),
		DaysOpen:      days,
	}
}
