package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	orderdomain "github.com/cfcdist/orderflow/internal/order/domain"
	"github.com/cfcdist/orderflow/pkg/db/pagination"
)

type createOrderRequest struct {
	OrderID       string          `json:"order_id"`
	CustomerName  string          `json:"customer_name"`
	CompanyName   string          `json:"company_name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Street        string          `json:"street"`
	Street2       string          `json:"street2"`
	City          string          `json:"city"`
	State         string          `json:"state"`
	Zip           string          `json:"zip"`
	Comments      string          `json:"comments"`
	OrderTotal    decimal.Decimal `json:"order_total"`
	TotalWeight   float64         `json:"total_weight"`
	OrderDate     *time.Time      `json:"order_date"`
	EmailThreadID string          `json:"email_thread_id"`
	Source        string          `json:"source"`
}

func (r createOrderRequest) toDomain() orderdomain.CreateOrderRequest {
	return orderdomain.CreateOrderRequest{
		OrderID:       strings.TrimSpace(r.OrderID),
		CustomerName:  strings.TrimSpace(r.CustomerName),
		CompanyName:   strings.TrimSpace(r.CompanyName),
		Email:         r.Email,
		Phone:         r.Phone,
		Street:        r.Street,
		Street2:       r.Street2,
		City:          r.City,
		State:         r.State,
		Zip:           r.Zip,
		Comments:      r.Comments,
		OrderTotal:    r.OrderTotal,
		TotalWeight:   r.TotalWeight,
		OrderDate:     r.OrderDate,
		EmailThreadID: r.EmailThreadID,
		Source:        r.Source,
	}
}

func (s *Server) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	order, err := s.orderSvc.Create(c.Request.Context(), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

type bulkCreateRequest struct {
	Orders []createOrderRequest `json:"orders"`
}

func (s *Server) BulkCreateOrders(c *gin.Context) {
	var req bulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	bulk := orderdomain.BulkCreateRequest{
		Orders: make([]orderdomain.CreateOrderRequest, 0, len(req.Orders)),
	}
	for _, item := range req.Orders {
		bulk.Orders = append(bulk.Orders, item.toDomain())
	}

	resp, err := s.orderSvc.BulkCreate(c.Request.Context(), bulk)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type listOrdersQuery struct {
	Status          string `form:"status"`
	Supplier        string `form:"supplier"`
	IncludeComplete bool   `form:"include_complete"`

	pagination.Pagination
}

func (s *Server) ListOrders(c *gin.Context) {
	var q listOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalidRequest(c, err)
		return
	}
	if q.Status != "" && !orderdomain.ValidStatus(q.Status) {
		invalidRequest(c, fmt.Errorf("unknown status %q", q.Status))
		return
	}

	resp, err := s.orderSvc.List(c.Request.Context(), orderdomain.ListOrdersRequest{
		Status:          q.Status,
		Supplier:        q.Supplier,
		IncludeComplete: q.IncludeComplete,
		Page:            q.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetOrder(c *gin.Context) {
	order, err := s.orderSvc.GetByID(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

type updateOrderRequest struct {
	CustomerName    *string `json:"customer_name"`
	Supplier        *string `json:"supplier"`
	SupplierOrderNo *string `json:"supplier_order_no"`
	Comments        *string `json:"comments"`
}

func (s *Server) UpdateOrder(c *gin.Context) {
	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	order, err := s.orderSvc.Update(c.Request.Context(), orderdomain.UpdateOrderRequest{
		OrderID:         c.Param("orderId"),
		CustomerName:    req.CustomerName,
		Supplier:        req.Supplier,
		SupplierOrderNo: req.SupplierOrderNo,
		Comments:        req.Comments,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

type updateCheckpointRequest struct {
	Checkpoint string         `json:"checkpoint"`
	Value      *bool          `json:"value"`
	Timestamp  *time.Time     `json:"timestamp"`
	Source     string         `json:"source"`
	Data       map[string]any `json:"data"`

	PaymentAmount   *decimal.Decimal `json:"payment_amount"`
	ShippingCost    *decimal.Decimal `json:"shipping_cost"`
	RLQuoteNo       string           `json:"rl_quote_no"`
	Tracking        string           `json:"tracking"`
	ProNumber       string           `json:"pro_number"`
	Supplier        string           `json:"supplier"`
	SupplierOrderNo string           `json:"supplier_order_no"`
}

func (s *Server) UpdateCheckpoint(c *gin.Context) {
	var req updateCheckpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	cp, err := orderdomain.ParseCheckpoint(req.Checkpoint)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Omitted value means "set", matching the common case of marking a
	// checkpoint done. Clearing requires an explicit false.
	value := true
	if req.Value != nil {
		value = *req.Value
	}

	resp, err := s.orderSvc.UpdateCheckpoint(c.Request.Context(), orderdomain.UpdateCheckpointRequest{
		OrderID:    c.Param("orderId"),
		Checkpoint: cp,
		Value:      value,
		Timestamp:  req.Timestamp,
		Source:     req.Source,
		Data:       req.Data,
		Supplemental: orderdomain.Supplemental{
			PaymentAmount:   req.PaymentAmount,
			ShippingCost:    req.ShippingCost,
			RLQuoteNo:       req.RLQuoteNo,
			Tracking:        req.Tracking,
			ProNumber:       req.ProNumber,
			Supplier:        req.Supplier,
			SupplierOrderNo: req.SupplierOrderNo,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListOrderEvents(c *gin.Context) {
	events, err := s.orderSvc.Events(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

func (s *Server) ListOrderItems(c *gin.Context) {
	items, err := s.orderSvc.LineItems(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (s *Server) StatusSummary(c *gin.Context) {
	summary, err := s.orderSvc.StatusSummary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) StuckOrders(c *gin.Context) {
	minDays := 3
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			invalidRequest(c, fmt.Errorf("invalid days value %q", raw))
			return
		}
		minDays = parsed
	}

	stuck, err := s.orderSvc.StuckOrders(c.Request.Context(), minDays)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stuck_orders": stuck, "count": len(stuck)})
}

// Briefing renders a plain-language daily status digest. The digest degrades
// to a fixed placeholder when the language model is unavailable, so the
// endpoint itself never fails on model errors.
func (s *Server) Briefing(c *gin.Context) {
	ctx := c.Request.Context()

	summary, err := s.orderSvc.StatusSummary(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	stuck, err := s.orderSvc.StuckOrders(ctx, 3)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	alerts, err := s.alertSvc.List(ctx, false)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active orders: %d of %d total (%d complete).\n",
		summary.ActiveOrders, summary.TotalOrders, summary.CompleteOrders)
	for status, count := range summary.ByStatus {
		fmt.Fprintf(&b, "  %s: %d\n", status, count)
	}
	if len(stuck) > 0 {
		b.WriteString("Stuck orders:\n")
		for _, so := range stuck {
			fmt.Fprintf(&b, "  %s (%s) stuck at %s for %d days\n",
				so.OrderID, so.CustomerName, so.StuckAt, so.DaysStuck)
		}
	}
	if len(alerts) > 0 {
		b.WriteString("Open alerts:\n")
		for _, a := range alerts {
			fmt.Fprintf(&b, "  order %s: %s\n", a.OrderID, a.Message)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"briefing":     s.summarizer.Summarize(ctx, b.String()),
		"active":       summary.ActiveOrders,
		"stuck_count":  len(stuck),
		"alert_count":  len(alerts),
		"generated_at": time.Now().UTC(),
	})
}

func (s *Server) ListUnmatchedSignals(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			invalidRequest(c, fmt.Errorf("invalid limit value %q", raw))
			return
		}
		limit = parsed
	}

	signals, err := s.recorder.ListUnmatched(c.Request.Context(), s.db, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"signals": signals, "count": len(signals)})
}
