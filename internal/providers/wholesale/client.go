package wholesale

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cfcdist/orderflow/internal/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("wholesale_not_configured")

// Order is one upstream wholesale order payload: header, ship-to address and
// line items. It is the source of truth for descriptive fields; checkpoint
// state never comes from here.
type Order struct {
	OrderID      string          `json:"order_id"`
	CustomerName string          `json:"customer_name"`
	CompanyName  string          `json:"company_name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	Street       string          `json:"street"`
	Street2      string          `json:"street2"`
	City         string          `json:"city"`
	State        string          `json:"state"`
	Zip          string          `json:"zip"`
	Comments     string          `json:"comments"`
	OrderTotal   decimal.Decimal `json:"order_total"`
	TotalWeight  float64         `json:"total_weight"`
	OrderDate    time.Time       `json:"order_date"`
	UpdatedAt    time.Time       `json:"updated_at"`
	LineItems    []LineItem      `json:"line_items"`
}

type LineItem struct {
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type Client struct {
	log        *zap.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
	configured bool
}

func New(cfg config.WholesaleConfig, log *zap.Logger) *Client {
	return &Client{
		log:        log.Named("providers.wholesale"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		configured: cfg.Configured(),
	}
}

func (c *Client) Configured() bool { return c.configured }

// GetOrder fetches one order by its wholesale identifier.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	var order Order
	if err := c.get(ctx, "/orders/"+url.PathEscape(orderID), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListUpdatedSince returns orders changed upstream since the given time.
func (c *Client) ListUpdatedSince(ctx context.Context, since time.Time) ([]Order, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("updated_since", since.UTC().Format(time.RFC3339))

	var out struct {
		Orders []Order `json:"orders"`
	}
	if err := c.get(ctx, "/orders?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("wholesale api error", zap.Int("status", resp.StatusCode), zap.String("path", path))
		return fmt.Errorf("wholesale api status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
